package realtime

import "sync"

// Registry is the process-local mapping from user ID to the live connection
// that currently owns routing for that user. It is the single source of truth
// for who is online; nothing in it survives a restart.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Register stores the mapping, replacing any prior client for that user, and
// returns the client it replaced, if any. Last connection wins: a second
// device silently takes over routing.
func (r *Registry) Register(userID string, c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	prior := r.clients[userID]
	r.clients[userID] = c
	return prior
}

// Unregister removes the mapping only if c is the currently registered client
// for userID, and reports whether it did. A stale disconnect from a
// superseded connection must not evict the newer one.
func (r *Registry) Unregister(userID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[userID] != c {
		return false
	}
	delete(r.clients, userID)
	return true
}

func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[userID]
	return c, ok
}

// Snapshot returns the IDs of all currently registered users.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) all() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}
