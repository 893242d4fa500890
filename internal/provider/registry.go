package provider

import (
	"fmt"
	"sync"
)

// Registry maps resource kinds to clients. A client registered under the
// empty kind serves as the fallback for kinds without a dedicated entry.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Client),
	}
}

// Register binds a client to a kind. Registering the same kind twice
// replaces the earlier client.
func (r *Registry) Register(kind string, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[kind] = c
}

// RegisterDefault binds the fallback client used for kinds that have no
// dedicated registration.
func (r *Registry) RegisterDefault(c Client) {
	r.Register("", c)
}

// Get returns the client for a kind, falling back to the default entry.
func (r *Registry) Get(kind string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.clients[kind]; ok {
		return c, nil
	}
	if c, ok := r.clients[""]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("no provider client for kind %q", kind)
}
