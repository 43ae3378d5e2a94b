package handlers

import (
	"errors"
	"net/http"

	"boomerang-backend/addresses"
	"boomerang-backend/models"
	"boomerang-backend/session"
	"boomerang-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AddressHandler struct {
	DB       *gorm.DB
	Sessions *session.Manager
}

// GetAddresses returns the saved addresses newest first, with the
// current selection applied. A store failure degrades to an empty
// list with a warning rather than failing the page.
func (h *AddressHandler) GetAddresses(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	s := h.Sessions.Get(userID.(uuid.UUID))

	addrs, err := s.Addresses.Load()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"addresses": []models.Address{},
			"warning":   "Addresses are temporarily unavailable",
		})
		return
	}
	if addrs == nil {
		addrs = []models.Address{}
	}

	resp := gin.H{"addresses": addrs}
	if selected, ok := s.Addresses.Selected(); ok {
		resp["selected_id"] = selected.ID
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AddressHandler) CreateAddress(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	uid := userID.(uuid.UUID)

	var req struct {
		Name      string `json:"name" binding:"required"`
		Email     string `json:"email" binding:"omitempty,email"`
		Street    string `json:"street" binding:"required"`
		City      string `json:"city" binding:"required"`
		State     string `json:"state" binding:"required"`
		Zip       string `json:"zip" binding:"required"`
		IsDefault bool   `json:"is_default"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	address := models.Address{
		ID:        uuid.New(),
		UserID:    uid,
		Name:      req.Name,
		Email:     req.Email,
		Street:    req.Street,
		City:      req.City,
		State:     req.State,
		Zip:       req.Zip,
		IsDefault: req.IsDefault,
	}

	// Clearing competing defaults and inserting happen in one
	// transaction so at most one default can ever be observed.
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault {
			if err := tx.Model(&models.Address{}).
				Where("user_id = ? AND is_default = ?", uid, true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create address"})
		return
	}

	// Refresh the session's loaded set so the new address is selectable.
	h.Sessions.Get(uid).Addresses.Load()

	c.JSON(http.StatusCreated, address)
}

func (h *AddressHandler) UpdateAddress(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	uid := userID.(uuid.UUID)

	var address models.Address
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), uid).First(&address).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
		return
	}

	var req struct {
		Name      *string `json:"name"`
		Email     *string `json:"email"`
		Street    *string `json:"street"`
		City      *string `json:"city"`
		State     *string `json:"state"`
		Zip       *string `json:"zip"`
		IsDefault *bool   `json:"is_default"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if req.Name != nil {
		address.Name = *req.Name
	}
	if req.Email != nil {
		address.Email = *req.Email
	}
	if req.Street != nil {
		address.Street = *req.Street
	}
	if req.City != nil {
		address.City = *req.City
	}
	if req.State != nil {
		address.State = *req.State
	}
	if req.Zip != nil {
		address.Zip = *req.Zip
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault != nil {
			if *req.IsDefault {
				if err := tx.Model(&models.Address{}).
					Where("user_id = ? AND is_default = ? AND id <> ?", uid, true, address.ID).
					Update("is_default", false).Error; err != nil {
					return err
				}
			}
			address.IsDefault = *req.IsDefault
		}
		return tx.Save(&address).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update address"})
		return
	}

	h.Sessions.Get(uid).Addresses.Load()

	c.JSON(http.StatusOK, address)
}

// SelectAddress sets the delivery address for checkout.
func (h *AddressHandler) SelectAddress(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	uid := userID.(uuid.UUID)

	addressID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address ID"})
		return
	}

	s := h.Sessions.Get(uid)
	if _, err := s.Addresses.Load(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch addresses"})
		return
	}

	selected, err := s.Addresses.Select(addressID)
	if err != nil {
		if errors.Is(err, addresses.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to select address"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"selected": selected})
}
