package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vhstube/backend/internal/models"
)

var (
	// ErrAuthFailure indicates the provider rejected a sign-in or sign-out.
	ErrAuthFailure = errors.New("auth provider failure")
	// ErrAlreadyInitialized indicates Initialize was called twice.
	ErrAlreadyInitialized = errors.New("session store already initialized")
)

// State is the lifecycle position of the current sign-in.
type State int

const (
	// StateUninitialized means Initialize has not been called.
	StateUninitialized State = iota
	// StateLoading means the first provider notification has not arrived yet.
	// Consumers must not render identity-dependent state while loading.
	StateLoading
	// StateAnonymous means the provider reported no signed-in identity.
	StateAnonymous
	// StateAuthenticated means the provider reported a signed-in identity.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "uninitialized"
	}
}

// Provider is the external identity provider contract. Subscribe must invoke
// the callback once with the current identity (nil when anonymous) before any
// later change notifications, so a new subscriber settles promptly.
type Provider interface {
	Subscribe(onChange func(identity *models.Identity)) (unsubscribe func())
	SignIn(ctx context.Context) (models.Identity, error)
	SignOut(ctx context.Context) error
}

// Snapshot is an immutable view of the store at one transition.
type Snapshot struct {
	State    State
	Identity *models.Identity
}

// Store is the process-wide source of truth for who is signed in. State moves
// uninitialized -> loading -> anonymous or authenticated, and afterwards only
// through provider change notifications.
type Store struct {
	provider Provider

	mu          sync.Mutex
	state       State
	identity    *models.Identity
	subscribers map[int]chan Snapshot
	nextSub     int
	unsubscribe func()

	first     chan struct{}
	firstOnce sync.Once
}

// NewStore constructs a Store bound to the provided identity provider.
func NewStore(provider Provider) *Store {
	if provider == nil {
		panic("session: provider must not be nil")
	}
	return &Store{
		provider:    provider,
		state:       StateUninitialized,
		subscribers: make(map[int]chan Snapshot),
		first:       make(chan struct{}),
	}
}

// Initialize subscribes to provider notifications and blocks until the first
// one arrives or ctx is done. The store leaves the loading state exactly once.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.state = StateLoading
	s.mu.Unlock()

	unsubscribe := s.provider.Subscribe(s.onChange)

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("await first auth notification: %w", ctx.Err())
	case <-s.first:
		return nil
	}
}

// onChange is the only mutator of identity state. It records the transition
// and fans it out to live subscribers with latest-wins delivery.
func (s *Store) onChange(identity *models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if identity != nil {
		copied := *identity
		s.identity = &copied
		s.state = StateAuthenticated
	} else {
		s.identity = nil
		s.state = StateAnonymous
	}

	snap := s.snapshotLocked()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// The subscriber has not drained the previous snapshot; replace it.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}

	s.firstOnce.Do(func() { close(s.first) })
}

// Snapshot returns the current state and identity.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state}
	if s.identity != nil {
		copied := *s.identity
		snap.Identity = &copied
	}
	return snap
}

// Identity returns the signed-in identity, if any.
func (s *Store) Identity() (models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated || s.identity == nil {
		return models.Identity{}, false
	}
	return *s.identity, true
}

// Subscribe returns a cancellable stream of state transitions. Each channel
// buffers the latest undelivered snapshot; slow consumers observe latest-wins
// delivery rather than blocking the notification handler.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 1)
	s.subscribers[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(ch)
		}
	}

	return ch, cancel
}

// SignIn runs the provider's interactive sign-in flow. The store's state is
// updated only through the provider's change notification; a failed sign-in
// leaves the store anonymous.
func (s *Store) SignIn(ctx context.Context) error {
	if _, err := s.provider.SignIn(ctx); err != nil {
		return fmt.Errorf("%w: sign in: %v", ErrAuthFailure, err)
	}
	return nil
}

// SignOut asks the provider to end the current session.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		return fmt.Errorf("%w: sign out: %v", ErrAuthFailure, err)
	}
	return nil
}

// Close detaches the store from the provider and ends all subscriptions.
func (s *Store) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	subs := s.subscribers
	s.subscribers = make(map[int]chan Snapshot)
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	for _, ch := range subs {
		close(ch)
	}
}
