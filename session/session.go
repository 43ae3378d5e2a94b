// Package session holds the per-shopper in-memory state: the cart, the
// address selector, and the checkout orchestrator, bundled so handlers
// always operate on one consistent set.
package session

import (
	"sync"

	"boomerang-backend/addresses"
	"boomerang-backend/cart"
	"boomerang-backend/checkout"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is one shopper's live state.
type Session struct {
	UserID    uuid.UUID
	Cart      *cart.Cart
	Addresses *addresses.Selector
	Checkout  *checkout.Orchestrator
}

// Manager hands out sessions keyed by user id, creating them on first
// use. Cart mutations are wired to reset the checkout orchestrator so
// a changed cart always restarts the checkout flow.
type Manager struct {
	db       *gorm.DB
	payments checkout.SessionClient

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewManager(db *gorm.DB, payments checkout.SessionClient) *Manager {
	return &Manager{
		db:       db,
		payments: payments,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Get returns the session for a user, creating it if needed.
func (m *Manager) Get(userID uuid.UUID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s
	}

	c := cart.New()
	sel := addresses.NewSelector(m.db, userID)
	orch := checkout.NewOrchestrator(m.payments, c, sel)
	c.SetOnMutate(orch.Reset)

	s := &Session{UserID: userID, Cart: c, Addresses: sel, Checkout: orch}
	m.sessions[userID] = s
	return s
}

// Drop discards a user's session. Called on sign-out; the next Get
// starts from an empty cart.
func (m *Manager) Drop(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Len reports how many live sessions exist.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
