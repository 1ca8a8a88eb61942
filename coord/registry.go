package coord

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks connected clients under stable identities. Coordinator
// implementations embed one; double-connects resolve to the existing
// identity.
type Registry struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]Client
	ids     map[Client]uuid.UUID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[uuid.UUID]Client),
		ids:     make(map[Client]uuid.UUID),
	}
}

// Add registers a client and returns its identity.
func (r *Registry) Add(c Client) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[c]; ok {
		return id
	}
	id := uuid.New()
	r.clients[id] = c
	r.ids[c] = id
	return id
}

// Remove drops a client. Removing an unknown client is a no-op.
func (r *Registry) Remove(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[c]; ok {
		delete(r.clients, id)
		delete(r.ids, c)
	}
}

// Contains reports whether the client is currently registered.
func (r *Registry) Contains(c Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[c]
	return ok
}

// List returns the registered clients in unspecified order.
func (r *Registry) List() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}
