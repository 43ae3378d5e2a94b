package checkout

import (
	"context"
	"errors"
	"sync"

	"boomerang-backend/addresses"
	"boomerang-backend/cart"

	"github.com/google/uuid"
)

// State is the orchestrator's position in a checkout attempt.
type State string

const (
	StateIdle        State = "idle"
	StateValidating  State = "validating"
	StateSubmitting  State = "submitting"
	StateRedirecting State = "redirecting"
	StateFailed      State = "failed"
)

var (
	// Validation errors, caught before any call to the provider.
	ErrNotSignedIn = errors.New("no authenticated identity")
	ErrNoAddress   = errors.New("no delivery address selected")
	ErrEmptyCart   = errors.New("cart is empty")

	// ErrBusy is returned when a checkout attempt is already in flight
	// or the shopper is being redirected.
	ErrBusy = errors.New("checkout already in progress")

	// ErrSuperseded is returned when the cart changed while the
	// session call was in flight; the created session is discarded.
	ErrSuperseded = errors.New("cart changed during checkout")
)

// Orchestrator validates checkout preconditions and hands the metadata
// payload to the session-creation collaborator exactly once per
// attempt. Re-entry while submitting or redirecting is rejected.
type Orchestrator struct {
	client    SessionClient
	cart      *cart.Cart
	addresses *addresses.Selector

	mu    sync.Mutex
	state State
	gen   uint64
	url   string
}

func NewOrchestrator(client SessionClient, c *cart.Cart, sel *addresses.Selector) *Orchestrator {
	return &Orchestrator{client: client, cart: c, addresses: sel, state: StateIdle}
}

// Checkout runs one attempt for the given identity. Validation
// failures return the orchestrator to idle without calling the
// provider; a provider failure surfaces the error and leaves the
// orchestrator in failed, from which a new attempt may start.
func (o *Orchestrator) Checkout(ctx context.Context, userID uuid.UUID) (Session, error) {
	o.mu.Lock()
	if o.state == StateSubmitting || o.state == StateRedirecting {
		o.mu.Unlock()
		return Session{}, ErrBusy
	}
	o.state = StateValidating

	if userID == uuid.Nil {
		o.state = StateIdle
		o.mu.Unlock()
		return Session{}, ErrNotSignedIn
	}
	addr, ok := o.addresses.Selected()
	if !ok {
		o.state = StateIdle
		o.mu.Unlock()
		return Session{}, ErrNoAddress
	}
	items := o.cart.Items()
	if len(items) == 0 {
		o.state = StateIdle
		o.mu.Unlock()
		return Session{}, ErrEmptyCart
	}

	meta := Metadata{UserID: userID, Address: addr, Items: make([]MetadataItem, 0, len(items))}
	for _, item := range items {
		meta.Items = append(meta.Items, MetadataItem{ProductID: item.Product.ID, Quantity: item.Quantity})
	}

	o.state = StateSubmitting
	o.gen++
	gen := o.gen
	o.mu.Unlock()

	sess, err := o.client.CreateSession(ctx, meta)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		// Reset raced the provider call; whatever came back is stale.
		return Session{}, ErrSuperseded
	}
	if err != nil {
		o.state = StateFailed
		return Session{}, err
	}
	o.state = StateRedirecting
	o.url = sess.URL
	return sess, nil
}

// Reset returns the orchestrator to idle and invalidates any attempt
// still in flight. Wired to cart mutations so a changed cart can never
// complete a checkout priced against its old contents.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateIdle
	o.gen++
	o.url = ""
}

// State reports the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// RedirectURL returns the session URL from the last successful attempt.
func (o *Orchestrator) RedirectURL() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.url
}
