package flow

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Registry tracks open scan sessions. Sessions untouched for idleTTL, or
// pushed out by newer ones past maxSessions, are dropped.
type Registry struct {
	resolver *Resolver
	logger   *slog.Logger

	// mu makes Get's lookup and refresh one step, so a concurrent Close
	// cannot be undone by the refresh.
	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
}

func NewRegistry(resolver *Resolver, maxSessions int, idleTTL time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		resolver: resolver,
		logger:   logger,
		sessions: expirable.NewLRU[string, *Session](maxSessions, nil, idleTTL),
	}
}

func (r *Registry) Open() *Session {
	s := NewSession(uuid.NewString(), r.resolver, r.logger)
	r.sessions.Add(s.ID(), s)
	r.logger.Debug("scan session opened", "session_id", s.ID())
	return s
}

// Get returns ErrUnknownSession for ids never opened, closed or expired.
// A successful Get refreshes the session's idle timer.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, ErrUnknownSession
	}
	r.sessions.Add(id, s)
	return s, nil
}

func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sessions.Remove(id) {
		return ErrUnknownSession
	}
	return nil
}

func (r *Registry) Len() int {
	return r.sessions.Len()
}
