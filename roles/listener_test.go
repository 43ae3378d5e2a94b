package roles

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeResolver lets tests control when each resolution completes.
type fakeResolver struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	forgets []uuid.UUID
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{gates: make(map[string]chan struct{})}
}

// gate makes the resolution for email block until release is called.
func (f *fakeResolver) gate(email string) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[email] = ch
	return func() { close(ch) }
}

func (f *fakeResolver) CreateOrUpdate(uid uuid.UUID, email string) (Record, error) {
	f.mu.Lock()
	ch := f.gates[email]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
	return Record{UID: uid, Email: email, Role: DetermineRole(email), Source: SourceDurable}, nil
}

func (f *fakeResolver) Forget(uid uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgets = append(f.forgets, uid)
}

func TestListenerResolvesSignIn(t *testing.T) {
	l := NewListener(newFakeResolver())
	uid := uuid.New()

	l.Handle(Event{UID: uid, Email: "shopper@boomerang.test", SignedIn: true})
	l.Wait()

	rec, ok := l.Current(uid)
	if !ok {
		t.Fatal("expected a resolved record")
	}
	if rec.Email != "shopper@boomerang.test" {
		t.Errorf("unexpected email %q", rec.Email)
	}
}

func TestListenerSignOutClearsState(t *testing.T) {
	r := newFakeResolver()
	l := NewListener(r)
	uid := uuid.New()

	l.Handle(Event{UID: uid, Email: "shopper@boomerang.test", SignedIn: true})
	l.Wait()
	l.Handle(Event{UID: uid, SignedIn: false})

	if _, ok := l.Current(uid); ok {
		t.Error("expected state cleared after sign-out")
	}
	if len(r.forgets) != 1 || r.forgets[0] != uid {
		t.Error("expected resolver told to forget the identity")
	}
}

func TestListenerDiscardsStaleResolution(t *testing.T) {
	r := newFakeResolver()
	l := NewListener(r)
	uid := uuid.New()

	// First sign-in resolves slowly; a second sign-in for the same
	// identity arrives and resolves before the first one finishes.
	release := r.gate("old@boomerang.test")
	l.Handle(Event{UID: uid, Email: "old@boomerang.test", SignedIn: true})
	l.Handle(Event{UID: uid, Email: "new@boomerang.test", SignedIn: true})

	deadline := time.After(2 * time.Second)
	for {
		if rec, ok := l.Current(uid); ok && rec.Email == "new@boomerang.test" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for second resolution")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Let the stale resolution finish; it must not overwrite.
	release()
	l.Wait()

	rec, ok := l.Current(uid)
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.Email != "new@boomerang.test" {
		t.Errorf("stale resolution overwrote newer one: %q", rec.Email)
	}
}

func TestListenerStaleResolutionAfterSignOut(t *testing.T) {
	r := newFakeResolver()
	l := NewListener(r)
	uid := uuid.New()

	release := r.gate("shopper@boomerang.test")
	l.Handle(Event{UID: uid, Email: "shopper@boomerang.test", SignedIn: true})
	l.Handle(Event{UID: uid, SignedIn: false})

	release()
	l.Wait()

	if _, ok := l.Current(uid); ok {
		t.Error("resolution landing after sign-out must be discarded")
	}
}

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	ch1, cancel1 := h.Subscribe()
	ch2, cancel2 := h.Subscribe()
	defer cancel1()
	defer cancel2()

	uid := uuid.New()
	h.Publish(Event{UID: uid, Email: "shopper@boomerang.test", SignedIn: true})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.UID != uid {
				t.Errorf("subscriber %d got wrong event", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d got no event", i)
		}
	}
}

func TestHubCancelUnsubscribes(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	cancel()

	// Channel closed; publish after cancel must not panic.
	h.Publish(Event{UID: uuid.New(), SignedIn: true})
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after cancel")
	}
}
