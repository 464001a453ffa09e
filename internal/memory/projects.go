package memory

import "sync"

// ProjectStore tracks the currently selected project code per user.
// Pure key-value semantics: explicit set, clear and read, no TTL.
//
// ProjectStore is safe for concurrent use by multiple goroutines.
type ProjectStore struct {
	mu       sync.RWMutex
	projects map[string]string
}

// NewProjectStore creates an empty registry.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{projects: make(map[string]string)}
}

// Get returns the selected project code for userID, or "" when none is
// set.
func (p *ProjectStore) Get(userID string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.projects[userID]
}

// Set records code as the selected project for userID, overwriting any
// previous selection.
func (p *ProjectStore) Set(userID, code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.projects[userID] = code
}

// Clear removes the selection for userID, reporting whether one existed.
func (p *ProjectStore) Clear(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.projects[userID]
	delete(p.projects, userID)
	return ok
}

// ClearAll removes every selection.
func (p *ProjectStore) ClearAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.projects = make(map[string]string)
}
