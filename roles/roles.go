package roles

import (
	"errors"
	"time"

	"boomerang-backend/config"
	"boomerang-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ErrStoreUnavailable is returned when the durable store could not be
// reached and the record came from the in-memory fallback tier. The
// record returned alongside it is still usable.
var ErrStoreUnavailable = errors.New("role store unavailable")

// ErrNotFound is returned by Get when no record exists in either tier.
var ErrNotFound = errors.New("role record not found")

// Source identifies which tier a Record came from.
type Source int

const (
	SourceDurable Source = iota
	SourceFallback
)

// Record is a resolved role for an authenticated identity.
type Record struct {
	UID       uuid.UUID
	Email     string
	Role      string
	Source    Source
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DetermineRole maps an email to a role. Exactly one address, the
// configured admin email, resolves to admin; everything else is user.
func DetermineRole(email string) string {
	if email == config.AdminEmail() {
		return RoleAdmin
	}
	return RoleUser
}

// Store resolves and persists role records. Writes go to the database
// and the in-memory cache together; when the database is unreachable
// the cache keeps serving so sessions survive an outage.
type Store struct {
	db    *gorm.DB
	cache *cache
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, cache: newCache()}
}

// CreateOrUpdate ensures a role record exists for the identity and that
// its role matches what DetermineRole computes for the email. Calling it
// repeatedly for the same identity is a no-op; a record persisted with a
// drifted role is corrected on the next call.
func (s *Store) CreateOrUpdate(uid uuid.UUID, email string) (Record, error) {
	role := DetermineRole(email)

	var existing models.UserRole
	err := s.db.Where("uid = ?", uid).First(&existing).Error
	switch {
	case err == nil:
		if existing.Role != role || existing.Email != email {
			updates := map[string]interface{}{"role": role, "email": email}
			if uerr := s.db.Model(&models.UserRole{}).Where("uid = ?", uid).Updates(updates).Error; uerr != nil {
				return s.fallback(uid, email)
			}
			existing.Role = role
			existing.Email = email
			existing.UpdatedAt = time.Now()
		}
		rec := fromModel(existing, SourceDurable)
		s.cache.put(rec)
		return rec, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		row := models.UserRole{UID: uid, Email: email, Role: role}
		if cerr := s.db.Create(&row).Error; cerr != nil {
			return s.fallback(uid, email)
		}
		rec := fromModel(row, SourceDurable)
		s.cache.put(rec)
		return rec, nil

	default:
		return s.fallback(uid, email)
	}
}

// Get returns the role record for an identity. The durable store is
// consulted first; on failure the cache answers instead, tagged as
// fallback, with ErrStoreUnavailable so callers can tell.
func (s *Store) Get(uid uuid.UUID) (Record, error) {
	var row models.UserRole
	err := s.db.Where("uid = ?", uid).First(&row).Error
	if err == nil {
		rec := fromModel(row, SourceDurable)
		s.cache.put(rec)
		return rec, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if rec, ok := s.cache.get(uid); ok {
			rec.Source = SourceFallback
			return rec, nil
		}
		return Record{}, ErrNotFound
	}
	if rec, ok := s.cache.get(uid); ok {
		rec.Source = SourceFallback
		return rec, ErrStoreUnavailable
	}
	return Record{}, ErrStoreUnavailable
}

// IsAdmin reports whether the identity currently resolves to admin.
// A fallback-tier record still counts; a missing record does not.
func (s *Store) IsAdmin(uid uuid.UUID) bool {
	rec, err := s.Get(uid)
	if err != nil && !errors.Is(err, ErrStoreUnavailable) {
		return false
	}
	return rec.Role == RoleAdmin
}

// Forget drops the cached record for an identity. Called on sign-out;
// the durable record is kept.
func (s *Store) Forget(uid uuid.UUID) {
	s.cache.delete(uid)
}

// fallback serves a record from the cache, or synthesizes one from the
// email alone, when the durable store failed. Either way the record is
// cached so the session keeps a consistent answer for this identity.
func (s *Store) fallback(uid uuid.UUID, email string) (Record, error) {
	if rec, ok := s.cache.get(uid); ok {
		rec.Source = SourceFallback
		return rec, ErrStoreUnavailable
	}
	now := time.Now()
	rec := Record{
		UID:       uid,
		Email:     email,
		Role:      DetermineRole(email),
		Source:    SourceFallback,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.cache.put(rec)
	return rec, ErrStoreUnavailable
}

func fromModel(row models.UserRole, src Source) Record {
	return Record{
		UID:       row.UID,
		Email:     row.Email,
		Role:      row.Role,
		Source:    src,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
