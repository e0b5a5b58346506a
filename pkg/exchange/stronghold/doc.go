// Package stronghold implements the core.Protocol interface for the
// Stronghold REST API.
//
// The package signs private requests, classifies the response envelope into
// typed errors and normalizes venue payloads into canonical core records.
// Every function here works on one request/response pair and keeps no state
// between calls; nonce ownership and venue selection belong to the session.
//
// Stronghold API Documentation: https://docs.stronghold.co
package stronghold
