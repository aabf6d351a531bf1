package app

import (
	"math/rand/v2"
	"sort"
	"time"

	"clip-trivia-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// SessionRepository abstracts where live sessions are held (in-memory, Redis-backed, etc).
type SessionRepository interface {
	// Insert stores the session under code unless the code is already held.
	Insert(code int, session *Session) bool
	Get(code int) (*Session, bool)
	// Delete removes code only while it still maps to session.
	Delete(code int, session *Session)
	List() []*Session
}

const (
	minCode             = 1000
	maxCode             = 9999
	defaultCodeAttempts = 64
)

// RandomCode draws a 4-digit game code.
func RandomCode() int {
	return minCode + rand.IntN(maxCode-minCode+1)
}

// Registry allocates game codes, resolves them and evicts sessions whose
// time budget ran out.
type Registry struct {
	store    SessionRepository
	delays   domain.Delays
	clock    clockwork.Clock
	codes    func() int
	attempts int
	onEvict  func(domain.SessionSummary)
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithClock sets the time source shared by the registry and its sessions.
func WithClock(clock clockwork.Clock) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

// WithCodeSource replaces the random code generator.
func WithCodeSource(codes func() int) RegistryOption {
	return func(r *Registry) { r.codes = codes }
}

// WithCodeAttempts bounds how many codes are drawn before giving up.
func WithCodeAttempts(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithEvictionHook is called for every session removed by Sweep.
func WithEvictionHook(hook func(domain.SessionSummary)) RegistryOption {
	return func(r *Registry) { r.onEvict = hook }
}

func NewRegistry(store SessionRepository, delays domain.Delays, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:    store,
		delays:   delays,
		clock:    clockwork.NewRealClock(),
		codes:    RandomCode,
		attempts: defaultCodeAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create sweeps expired sessions, then registers a new session under a free code.
func (r *Registry) Create(level domain.Level) (*Session, error) {
	r.Sweep(r.clock.Now())

	for i := 0; i < r.attempts; i++ {
		code := r.codes()
		if _, held := r.store.Get(code); held {
			continue
		}
		session := NewSession(code, level, r.delays, r.clock)
		if r.store.Insert(code, session) {
			return session, nil
		}
	}
	return nil, domain.ErrCodesExhausted
}

// Lookup resolves a code. It never creates sessions.
func (r *Registry) Lookup(code int) (*Session, error) {
	session, ok := r.store.Get(code)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Sweep removes every session whose eviction budget elapsed at now. Sessions
// are detached from the store first; in-flight requests finish against the
// detached object.
func (r *Registry) Sweep(now time.Time) []domain.SessionSummary {
	var evicted []domain.SessionSummary
	for _, session := range r.store.List() {
		if !session.Expired(now) {
			continue
		}
		r.store.Delete(session.Code(), session)
		summary := session.Snapshot()
		evicted = append(evicted, summary)
		if r.onEvict != nil {
			r.onEvict(summary)
		}
	}
	return evicted
}

// Stats counts held sessions and the active subset (created but not yet
// ended), derived from live entries.
func (r *Registry) Stats() (held, active int) {
	sessions := r.store.List()
	for _, session := range sessions {
		if session.Snapshot().State != domain.StateEnded {
			active++
		}
	}
	return len(sessions), active
}

// SuggestCode returns the lowest code still accepting players before start,
// or 0 when there is none.
func (r *Registry) SuggestCode() int {
	codes := make([]int, 0)
	for _, session := range r.store.List() {
		if session.Snapshot().State == domain.StateJoining {
			codes = append(codes, session.Code())
		}
	}
	if len(codes) == 0 {
		return 0
	}
	sort.Ints(codes)
	return codes[0]
}
