package match

import (
	"sort"
	"sync"
)

// connRegistry maps live connection ids to their authenticated identity.
// A user with several tabs holds several entries under the same name.
type connRegistry struct {
	mu    sync.RWMutex
	conns map[string]string // connection id -> username
}

func newConnRegistry() *connRegistry {
	return &connRegistry{conns: make(map[string]string)}
}

func (r *connRegistry) register(connID, username string) {
	r.mu.Lock()
	r.conns[connID] = username
	r.mu.Unlock()
}

// unregister tolerates ids that are already gone, so duplicate cleanup
// paths (leave + disconnect) stay safe.
func (r *connRegistry) unregister(connID string) {
	r.mu.Lock()
	delete(r.conns, connID)
	r.mu.Unlock()
}

func (r *connRegistry) identity(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	username, ok := r.conns[connID]
	return username, ok
}

func (r *connRegistry) live(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[connID]
	return ok
}

func (r *connRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// presence returns the distinct identities holding at least one live
// connection, sorted for stable broadcasts.
func (r *connRegistry) presence() []string {
	r.mu.RLock()
	seen := make(map[string]struct{}, len(r.conns))
	for _, username := range r.conns {
		seen[username] = struct{}{}
	}
	r.mu.RUnlock()

	users := make([]string, 0, len(seen))
	for username := range seen {
		users = append(users, username)
	}
	sort.Strings(users)
	return users
}
