package addresses

import (
	"errors"
	"fmt"
	"sync"

	"boomerang-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrFetch wraps a transport or query failure while loading addresses.
// Callers should treat it as "no addresses available" rather than a
// hard failure.
var ErrFetch = errors.New("failed to fetch addresses")

// ErrNotFound is returned by Select when the id is absent from the
// last-loaded set.
var ErrNotFound = errors.New("address not in loaded set")

// Selector fetches a user's saved addresses and tracks the currently
// selected delivery address.
type Selector struct {
	db     *gorm.DB
	userID uuid.UUID

	mu       sync.Mutex
	loaded   []models.Address
	selected *models.Address
}

func NewSelector(db *gorm.DB, userID uuid.UUID) *Selector {
	return &Selector{db: db, userID: userID}
}

// Load fetches the user's addresses ordered most-recently-created
// first and applies the selection policy: the default address if one
// exists, otherwise the first in order, otherwise nothing. When two
// addresses both claim default, the first in order wins.
func (s *Selector) Load() ([]models.Address, error) {
	var addrs []models.Address
	err := s.db.Where("user_id = ?", s.userID).Order("created_at DESC").Find(&addrs).Error

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.loaded = nil
		s.selected = nil
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	s.loaded = addrs
	s.selected = nil
	for i := range addrs {
		if addrs[i].IsDefault {
			s.selected = &addrs[i]
			break
		}
	}
	if s.selected == nil && len(addrs) > 0 {
		s.selected = &addrs[0]
	}
	return addrs, nil
}

// Select sets the current selection to the matching address from the
// last-loaded set.
func (s *Selector) Select(id uuid.UUID) (models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.loaded {
		if s.loaded[i].ID == id {
			s.selected = &s.loaded[i]
			return s.loaded[i], nil
		}
	}
	return models.Address{}, ErrNotFound
}

// Selected returns the current delivery address, if any.
func (s *Selector) Selected() (models.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return models.Address{}, false
	}
	return *s.selected, true
}

// Addresses returns a copy of the last-loaded set.
func (s *Selector) Addresses() []models.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Address, len(s.loaded))
	copy(out, s.loaded)
	return out
}
