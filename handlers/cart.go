package handlers

import (
	"net/http"

	"boomerang-backend/cart"
	"boomerang-backend/models"
	"boomerang-backend/session"
	"boomerang-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CartHandler struct {
	DB       *gorm.DB
	Sessions *session.Manager
}

func cartResponse(c *cart.Cart) gin.H {
	items := c.Items()
	if items == nil {
		items = []cart.LineItem{}
	}
	return gin.H{
		"items":    items,
		"count":    c.Count(),
		"subtotal": c.Subtotal(),
		"total":    c.Total(),
	}
}

func (h *CartHandler) userSession(c *gin.Context) (*session.Session, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	return h.Sessions.Get(userID.(uuid.UUID)), true
}

func (h *CartHandler) GetCart(c *gin.Context) {
	s, ok := h.userSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartResponse(s.Cart))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	s, ok := h.userSession(c)
	if !ok {
		return
	}

	var req struct {
		ProductID uuid.UUID `json:"product_id" binding:"required"`
		Quantity  int       `json:"quantity"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}

	var product models.Product
	if err := h.DB.Preload("Images").Where("id = ? AND status = ?", req.ProductID, "active").First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	s.Cart.AddItem(product, req.Quantity)
	c.JSON(http.StatusOK, cartResponse(s.Cart))
}

func (h *CartHandler) SetQuantity(c *gin.Context) {
	s, ok := h.userSession(c)
	if !ok {
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var req struct {
		Quantity *int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	// Zero or negative removes the line item.
	s.Cart.SetQuantity(productID, *req.Quantity)
	c.JSON(http.StatusOK, cartResponse(s.Cart))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	s, ok := h.userSession(c)
	if !ok {
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	s.Cart.RemoveItem(productID)
	c.JSON(http.StatusOK, cartResponse(s.Cart))
}

// ResetCart clears the whole cart. Irreversible, so the caller must
// send confirm=true; the storefront only does that after the shopper
// confirms a prompt.
func (h *CartHandler) ResetCart(c *gin.Context) {
	s, ok := h.userSession(c)
	if !ok {
		return
	}

	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart reset requires confirm=true"})
		return
	}

	s.Cart.Reset()
	c.JSON(http.StatusOK, cartResponse(s.Cart))
}
