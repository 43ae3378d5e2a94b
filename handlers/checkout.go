package handlers

import (
	"errors"
	"net/http"

	"boomerang-backend/checkout"
	"boomerang-backend/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CheckoutHandler struct {
	Sessions *session.Manager
}

// CreateCheckoutSession runs one checkout attempt for the signed-in
// shopper and returns the payment redirect URL.
func (h *CheckoutHandler) CreateCheckoutSession(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	uid := userID.(uuid.UUID)
	s := h.Sessions.Get(uid)

	// The selector works off the last-loaded set; load here so a
	// shopper who never opened the address page still gets their
	// default address picked up.
	if _, ok := s.Addresses.Selected(); !ok {
		s.Addresses.Load()
	}

	sess, err := s.Checkout.Checkout(c.Request.Context(), uid)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"url": sess.URL, "session_id": sess.ID})
	case errors.Is(err, checkout.ErrNotSignedIn):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in to check out"})
	case errors.Is(err, checkout.ErrNoAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Select a delivery address before checking out"})
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your cart is empty"})
	case errors.Is(err, checkout.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "Checkout already in progress"})
	case errors.Is(err, checkout.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": "Cart changed during checkout, please try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
	}
}

// GetCheckoutState reports where the shopper's checkout attempt stands.
func (h *CheckoutHandler) GetCheckoutState(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	s := h.Sessions.Get(userID.(uuid.UUID))

	resp := gin.H{"state": s.Checkout.State()}
	if url := s.Checkout.RedirectURL(); url != "" {
		resp["url"] = url
	}
	c.JSON(http.StatusOK, resp)
}
