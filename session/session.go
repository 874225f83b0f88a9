package session

import (
	"sync"
	"time"
)

// Identity is the authenticated user as the rest of the app sees it.
type Identity struct {
	UserID        string `json:"userid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Snapshot is one observed auth state. Loading is true only for the initial
// snapshot a subscriber receives before any transition has been observed.
type Snapshot struct {
	Identity      *Identity `json:"identity"`
	Loading       bool      `json:"loading"`
	EmailVerified bool      `json:"email_verified"`
	At            time.Time `json:"at"`
}

// Subscription yields snapshots on C until Cancel is called. Slow consumers
// miss intermediate snapshots rather than blocking publishers.
type Subscription struct {
	C      chan Snapshot
	cancel func()
	once   sync.Once
}

func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Broker tracks the latest auth snapshot per user and fans transitions out
// to subscribers.
type Broker struct {
	mu      sync.RWMutex
	current map[string]Snapshot       // userID -> latest snapshot
	subs    map[string]map[*Subscription]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		current: make(map[string]Snapshot),
		subs:    make(map[string]map[*Subscription]struct{}),
	}
}

// Publish records a transition for a user and notifies subscribers. A nil
// identity means signed out.
func (b *Broker) Publish(userID string, identity *Identity) {
	snap := Snapshot{
		Identity: identity,
		At:       time.Now(),
	}
	if identity != nil {
		snap.EmailVerified = identity.EmailVerified
	}

	b.mu.Lock()
	b.current[userID] = snap
	targets := make([]*Subscription, 0, len(b.subs[userID]))
	for sub := range b.subs[userID] {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.C <- snap:
		default: // drop for slow consumers
		}
	}
}

// Subscribe returns a subscription primed with the current snapshot for the
// user (Loading=true when no transition has been seen yet). The caller must
// Cancel it on teardown.
func (b *Broker) Subscribe(userID string) *Subscription {
	sub := &Subscription{C: make(chan Snapshot, 8)}
	sub.cancel = func() {
		b.mu.Lock()
		if set, ok := b.subs[userID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(b.subs, userID)
			}
		}
		b.mu.Unlock()
	}

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*Subscription]struct{})
	}
	b.subs[userID][sub] = struct{}{}
	snap, seen := b.current[userID]
	b.mu.Unlock()

	if !seen {
		snap = Snapshot{Loading: true, At: time.Now()}
	}
	sub.C <- snap
	return sub
}

// Current returns the latest known snapshot for a user.
func (b *Broker) Current(userID string) Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if snap, ok := b.current[userID]; ok {
		return snap
	}
	return Snapshot{Loading: true, At: time.Now()}
}
