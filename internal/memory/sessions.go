package memory

import "sync"

// SessionStore is a registry of per-user conversations. Sessions are
// created lazily on first access and never expire; only Delete and
// ClearAll remove them.
//
// SessionStore is safe for concurrent use. Requests for different users
// never contend beyond the registry lock; requests for the same user
// share one Conversation, which is itself concurrency-safe but not
// serialized per turn.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Conversation
	maxMessages int
}

// NewSessionStore creates an empty registry whose conversations are
// bounded to maxMessages each.
func NewSessionStore(maxMessages int) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*Conversation),
		maxMessages: maxMessages,
	}
}

// Get returns the conversation for userID, creating and registering one
// on first access. Repeated calls with the same id return the same
// underlying instance.
func (s *SessionStore) Get(userID string) *Conversation {
	s.mu.RLock()
	conv, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return conv
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check; another goroutine may have created it between locks.
	if conv, ok := s.sessions[userID]; ok {
		return conv
	}
	conv = NewConversation(s.maxMessages)
	s.sessions[userID] = conv
	return conv
}

// Has reports whether a session exists for userID without creating one.
func (s *SessionStore) Has(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[userID]
	return ok
}

// Delete removes the session for userID, reporting whether one existed.
func (s *SessionStore) Delete(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	delete(s.sessions, userID)
	return ok
}

// ClearAll removes every session.
func (s *SessionStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*Conversation)
}

// Count returns the number of registered sessions.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// IDs returns the user ids with a registered session, in no particular
// order.
func (s *SessionStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}
