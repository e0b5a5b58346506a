package exchange

import (
	"fmt"
	"slices"
	"sync"

	"strongbridge/pkg/core"
	"strongbridge/pkg/exchange/stronghold"
)

// ProtocolFactory builds a fresh protocol instance.
type ProtocolFactory func() core.Protocol

// Container is a thread-safe registry of venue protocols, keyed by the name
// used in core.Config.Exchange.
type Container struct {
	mu        sync.RWMutex
	protocols map[string]ProtocolFactory
}

// NewContainer creates and returns a new empty container.
func NewContainer() *Container {
	return &Container{
		protocols: make(map[string]ProtocolFactory),
	}
}

// DefaultContainer returns a container with every built-in venue registered.
func DefaultContainer() *Container {
	c := NewContainer()
	c.Register(stronghold.Name, func() core.Protocol { return stronghold.NewProtocol() })
	return c
}

// Register adds a protocol factory under name, replacing any existing one.
func (c *Container) Register(name string, factory ProtocolFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.protocols[name] = factory
}

// Protocol builds the protocol registered under name.
func (c *Container) Protocol(name string) (core.Protocol, error) {
	c.mu.RLock()
	factory, ok := c.protocols[name]
	c.mu.RUnlock()

	if !ok {
		return nil, core.NewConfigError(name, fmt.Sprintf("exchange %q not registered", name))
	}
	return factory(), nil
}

// Exists reports whether name is registered.
func (c *Container) Exists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.protocols[name]
	return ok
}

// Names returns the registered names in sorted order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.protocols))
	for name := range c.protocols {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Unregister removes a protocol by name.
func (c *Container) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.protocols, name)
}
