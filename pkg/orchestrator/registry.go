package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Registry is the Session Registry of spec.md §4.9: a map from stable
// opaque IDs to Sessions. Other components do not look Sessions up here:
// the Conference Coordinator holds direct *Session pointers to both legs,
// and cmd/agentd's tool handlers close over a pointer to their Session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers a new Session under id — normally the telephony
// stream id, so a later reconnect naming the same id resolves to this
// Session rather than minting a new one (spec.md §4.8/§4.9). If id is
// empty (a caller with no externally meaningful identifier) a uuid is
// generated instead.
func (r *Registry) Create(ctx context.Context, id string, role SessionRole, deps SessionDeps, cfg Config, logger Logger) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	s := NewSession(ctx, id, role, deps, cfg, logger)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s
}

// CreateOrReconnect is the registry-level entry point for spec.md §4.8
// reconnection: if id is already registered, its Session's adapters and
// transport closures are swapped in place (ReplaceAdapters) and
// reconnected is true; otherwise a new Session is created and initialized
// exactly as a fresh call would be.
func (r *Registry) CreateOrReconnect(ctx context.Context, id string, role SessionRole, deps SessionDeps, rd ReconnectDeps, cfg Config, logger Logger) (sess *Session, reconnected bool, err error) {
	if id != "" {
		if existing, ok := r.Get(id); ok {
			if err := existing.ReplaceAdapters(rd); err != nil {
				return nil, true, fmt.Errorf("reconnect session %s: %w", id, err)
			}
			return existing, true, nil
		}
	}

	s := r.Create(ctx, id, role, deps, cfg, logger)
	if err := s.Init(); err != nil {
		_ = r.Delete(s.ID)
		return nil, false, err
	}
	return s, false, nil
}

// Get returns the Session registered under id, or (nil, false).
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Has reports whether id is currently registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// ReplaceAdapters looks up id and swaps its adapters/transport closures in
// place, implementing the reconnection operation of spec.md §4.8 at the
// registry's lookup boundary.
func (r *Registry) ReplaceAdapters(id string, rd ReconnectDeps) error {
	s, ok := r.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	return s.ReplaceAdapters(rd)
}

// Delete removes id from the registry and tears the Session down.
// Session.HangUp (also reached via Conference.Disconnect) runs Cleanup
// directly; a Session torn down that way stays registered until Delete is
// called for it.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Cleanup()
	return nil
}

// Len returns the number of currently registered Sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown tears down every registered Session concurrently, using
// errgroup the way MrWong99-glyphoxa's worker-pool teardown does, and
// returns once every Cleanup has returned.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := r.Delete(id); err != nil {
				return fmt.Errorf("shutdown session %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}
