package roles

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Event describes an identity state change: a sign-in carrying the
// authenticated email, or a sign-out.
type Event struct {
	UID      uuid.UUID
	Email    string
	SignedIn bool
}

// Hub fans identity events out to subscribers. Publishing never blocks
// the caller; a subscriber that falls behind loses events rather than
// stalling sign-in.
type Hub struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a cancel function that
// unsubscribes and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan Event, 32)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			log.Printf("roles: dropping event for %s, subscriber backed up", e.UID)
		}
	}
}

// Resolver is what the listener needs from the role store.
type Resolver interface {
	CreateOrUpdate(uid uuid.UUID, email string) (Record, error)
	Forget(uid uuid.UUID)
}

// Listener consumes identity events and keeps the current role record
// per identity. Resolution runs asynchronously; each event bumps a
// per-identity sequence number, and a resolution that finishes after a
// newer event has arrived is discarded instead of overwriting it.
type Listener struct {
	resolver Resolver

	mu      sync.Mutex
	seq     map[uuid.UUID]uint64
	current map[uuid.UUID]Record
	pending sync.WaitGroup
}

func NewListener(r Resolver) *Listener {
	return &Listener{
		resolver: r,
		seq:      make(map[uuid.UUID]uint64),
		current:  make(map[uuid.UUID]Record),
	}
}

// Run consumes events until the channel is closed.
func (l *Listener) Run(events <-chan Event) {
	for e := range events {
		l.Handle(e)
	}
}

// Handle processes one event. Sign-outs clear state synchronously;
// sign-ins kick off an asynchronous resolution.
func (l *Listener) Handle(e Event) {
	l.mu.Lock()
	l.seq[e.UID]++
	seq := l.seq[e.UID]
	if !e.SignedIn {
		delete(l.current, e.UID)
		l.mu.Unlock()
		l.resolver.Forget(e.UID)
		return
	}
	l.mu.Unlock()

	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		rec, err := l.resolver.CreateOrUpdate(e.UID, e.Email)
		if err != nil {
			log.Printf("roles: resolving %s from fallback tier: %v", e.UID, err)
		}
		l.apply(e.UID, seq, rec)
	}()
}

func (l *Listener) apply(uid uuid.UUID, seq uint64, rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seq[uid] != seq {
		// A newer event superseded this resolution while it was in flight.
		return
	}
	l.current[uid] = rec
}

// Current returns the resolved record for an identity, if any.
func (l *Listener) Current(uid uuid.UUID) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.current[uid]
	return rec, ok
}

// Wait blocks until all in-flight resolutions have completed. Used
// during shutdown and in tests.
func (l *Listener) Wait() {
	l.pending.Wait()
}
