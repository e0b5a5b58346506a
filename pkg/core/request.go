package core

import (
	"fmt"
	"maps"
	"net/url"
	"strings"
)

type Params map[string]any

// Path parameters a session fills in from its own state.
const (
	PathVenueID   = "venueId"
	PathAccountID = "accountId"
)

// Request is a venue call before templating and signing. Path may contain
// {name} placeholders that are filled from Query.
type Request struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Query       Params            `json:"query,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Weight      int               `json:"weight"`
	RequireAuth bool              `json:"require_auth"`
}

func NewRequest(method, path string) *Request {
	return &Request{
		Method:  method,
		Path:    path,
		Query:   make(Params),
		Headers: make(map[string]string),
		Weight:  1,
	}
}

func (r *Request) SetQuery(key string, value any) *Request {
	if r.Query == nil {
		r.Query = make(Params)
	}
	r.Query[key] = value
	return r
}

func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

func (r *Request) SetWeight(weight int) *Request {
	r.Weight = weight
	return r
}

func (r *Request) SetRequireAuth(require bool) *Request {
	r.RequireAuth = require
	return r
}

func (r *Request) SetQueryParams(params Params) *Request {
	if r.Query == nil {
		r.Query = make(Params)
	}
	maps.Copy(r.Query, params)
	return r
}

// HasPathParam reports whether Path contains the {name} placeholder.
func (r *Request) HasPathParam(name string) bool {
	return strings.Contains(r.Path, "{"+name+"}")
}

// Implode substitutes {name} placeholders in Path with the matching Query
// values, each escaped as a single path segment. It returns the concrete path and the parameters that were not
// consumed by the path.
func (r *Request) Implode() (string, Params, error) {
	rest := make(Params, len(r.Query))
	maps.Copy(rest, r.Query)

	var b strings.Builder
	path := r.Path
	for {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			b.WriteString(path)
			break
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			return "", nil, fmt.Errorf("unterminated placeholder in %q", r.Path)
		}
		end += start

		name := path[start+1 : end]
		val, ok := rest[name]
		if !ok || val == nil || fmt.Sprint(val) == "" {
			return "", nil, fmt.Errorf("missing path parameter: %s", name)
		}
		b.WriteString(path[:start])
		b.WriteString(url.PathEscape(fmt.Sprint(val)))
		delete(rest, name)
		path = path[end+1:]
	}

	return b.String(), rest, nil
}

// SignedRequest is a fully prepared venue call. Body holds the exact bytes
// that were signed and must be sent unchanged.
type SignedRequest struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Query   url.Values        `json:"query,omitempty"`
	Body    []byte            `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	// Nonce is the timestamp the request was signed with, zero for public calls.
	Nonce int64 `json:"nonce,omitempty"`
}

// URL returns the path with the encoded query string appended.
func (s *SignedRequest) URL() string {
	if len(s.Query) == 0 {
		return s.Path
	}
	return s.Path + "?" + s.Query.Encode()
}
