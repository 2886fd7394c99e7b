package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/appetiteclub/posconsole/internal/backend"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

const defaultSessionTTL = 8 * time.Hour

// Session is the console-side record of a signed-in admin. It holds the
// backend bearer token so it never reaches the browser.
type Session struct {
	ID        string        `json:"id"`
	Token     string        `json:"token"`
	Admin     backend.Admin `json:"admin"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionStore persists console sessions by cookie id.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore keeps sessions in process memory. Expired sessions are
// swept periodically between Start and Stop.
type MemorySessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
		interval: 5 * time.Minute,
	}
}

func (s *MemorySessionStore) Save(ctx context.Context, session *Session) error {
	if session == nil {
		return errors.New("session is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
	return nil
}

func (s *MemorySessionStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	if session.Expired(time.Now()) {
		return nil, ErrSessionExpired
	}

	return session, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Start launches the expiry sweep.
func (s *MemorySessionStore) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return nil
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.cleanup(s.stop, s.done)
	return nil
}

// Stop ends the expiry sweep.
func (s *MemorySessionStore) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MemorySessionStore) cleanup(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.removeExpired(time.Now())
		}
	}
}

func (s *MemorySessionStore) removeExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
		}
	}
}
