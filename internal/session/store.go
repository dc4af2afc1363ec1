package session

import (
	"sync"
	"time"
)

// DefaultID is the implicit session shared by every caller that does not
// send a session id. It lives for the process lifetime like any other.
const DefaultID = ""

// Session tracks per-conversation state for the serving process. Entries are
// never evicted; greeting state intentionally resets on restart.
type Session struct {
	ID        string    `json:"session_id"`
	Greeted   bool      `json:"greeted"`
	CreatedAt time.Time `json:"created_at"`
}

// Store owns the session map. All mutation goes through the store so the
// greeting read-modify-write is a single critical section.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns a snapshot of the session, fabricating a fresh entry
// on first sight of the id. It never fails.
func (s *Store) GetOrCreate(id string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(id)
}

// ClaimGreeting atomically claims the one-time greeting for the session.
// Exactly one caller per session id ever gets true, even when first requests
// race. The caller that claimed must ReleaseGreeting if the reply it was
// claiming for never gets delivered.
func (s *Store) ClaimGreeting(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(id)
	if sess.Greeted {
		return false
	}
	sess.Greeted = true
	return true
}

// ReleaseGreeting rolls back a claim after a failed generation so a later
// request still delivers the greeting.
func (s *Store) ReleaseGreeting(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.Greeted = false
	}
}

// Greeted reports whether the greeting was already delivered for the id.
func (s *Store) Greeted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return ok && sess.Greeted
}

// Count returns the number of sessions seen so far, the implicit default
// session included once referenced.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) getOrCreateLocked(id string) *Session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &Session{ID: id, CreatedAt: time.Now().UTC()}
		s.sessions[id] = sess
	}
	return sess
}
