package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TexasFortress-AI/rustymail-mcp/pkg/logging"
)

// Session is one initialized client session. CreatedAt is fixed at
// initialize time; LastActivity advances on every request that presents the
// session id.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastActivity time.Time
}

// SessionStore tracks live sessions with TTL-based expiry. Expiry is
// enforced two ways: lazily on lookup, and by a background sweep that frees
// memory for sessions no one asks about again.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl           time.Duration
	sweepInterval time.Duration
	logger        logging.Logger

	// now is swappable so expiry is testable without sleeping.
	now func() time.Time
}

// NewSessionStore creates a store with the given TTL and sweep interval.
func NewSessionStore(ttl, sweepInterval time.Duration, logger logging.Logger) *SessionStore {
	if logger == nil {
		logger = logging.Nop()
	}
	return &SessionStore{
		sessions:      make(map[string]*Session),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		logger:        logger,
		now:           time.Now,
	}
}

// Create mints a new session with a random id and returns it.
func (s *SessionStore) Create() Session {
	now := s.now()
	sess := &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Debug("session created", logging.String("session_id", sess.ID))
	return *sess
}

// Get returns a copy of the session if it exists and has not expired.
// Expired sessions are removed on the spot.
func (s *SessionStore) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	if s.expired(sess) {
		delete(s.sessions, id)
		return Session{}, false
	}
	return *sess, true
}

// Touch advances the session's activity clock. It reports whether the
// session existed and was live.
func (s *SessionStore) Touch(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	if s.expired(sess) {
		delete(s.sessions, id)
		return false
	}
	sess.LastActivity = s.now()
	return true
}

// Delete removes a session unconditionally.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of tracked sessions, including any that expired
// but have not been swept yet.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes every expired session and returns how many were dropped.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on the configured interval until the context is canceled.
func (s *SessionStore) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("swept expired sessions", logging.Int("count", n))
			}
		}
	}
}

// expired must be called with the lock held.
func (s *SessionStore) expired(sess *Session) bool {
	return s.now().Sub(sess.LastActivity) > s.ttl
}
