package auth

import (
	"sync"

	"github.com/vhstube/backend/internal/models"
)

// notifier fans identity changes out to subscribers. A new subscriber is
// called immediately with the current identity (nil when anonymous), which is
// what lets the session store settle on its first transition without waiting
// for a sign-in.
type notifier struct {
	mu      sync.Mutex
	current *models.Identity
	subs    map[int]func(*models.Identity)
	nextID  int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]func(*models.Identity))}
}

// Subscribe registers onChange and invokes it with the current identity.
func (n *notifier) Subscribe(onChange func(identity *models.Identity)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = onChange
	current := n.current
	n.mu.Unlock()

	onChange(current)

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// set records the new identity and notifies every subscriber.
func (n *notifier) set(identity *models.Identity) {
	n.mu.Lock()
	n.current = identity
	subs := make([]func(*models.Identity), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(identity)
	}
}

// Current returns the identity most recently reported to subscribers.
func (n *notifier) Current() *models.Identity {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return nil
	}
	copied := *n.current
	return &copied
}
