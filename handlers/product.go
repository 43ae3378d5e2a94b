package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"boomerang-backend/firebase"
	"boomerang-backend/models"
	"boomerang-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductHandler struct {
	DB      *gorm.DB
	Storage firebase.StorageClient
}

const searchResultLimit = 10

func (h *ProductHandler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := h.DB.Model(&models.Product{}).Preload("Categories").Preload("Images")

	// Hidden products only surface in the studio.
	if c.Query("show_all") != "true" {
		query = query.Where("status = ?", "active")
	}

	if category := c.Query("category"); category != "" {
		query = query.Joins("JOIN product_categories pc ON pc.product_id = products.id").
			Joins("JOIN categories cat ON cat.id = pc.category_id").
			Where("cat.slug = ?", category)
	}

	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(title) LIKE LOWER(?)", "%"+search+"%")
	}

	switch c.Query("sort") {
	case "price_asc":
		query = query.Order("price ASC")
	case "price_desc":
		query = query.Order("price DESC")
	case "newest":
		query = query.Order("created_at DESC")
	default:
		query = query.Order("title ASC")
	}

	var total int64
	query.Count(&total)

	var products []models.Product
	if err := query.Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// GetProduct looks a product up by id, falling back to slug so both
// /products/<uuid> and /products/<slug> resolve.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	idOrSlug := c.Param("id")
	var product models.Product

	query := h.DB.Preload("Categories").Preload("Images").Where("status = ?", "active")
	if _, err := uuid.Parse(idOrSlug); err == nil {
		query = query.Where("id = ?", idOrSlug)
	} else {
		query = query.Where("slug = ?", idOrSlug)
	}

	if err := query.First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// SearchProducts backs the storefront search box. An empty query is a
// valid request that returns no results, and a store failure degrades
// to an empty list with a warning instead of an error page.
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusOK, gin.H{"results": []models.Product{}})
		return
	}

	var results []models.Product
	err := h.DB.Preload("Images").
		Where("status = ?", "active").
		Where("LOWER(title) LIKE LOWER(?)", "%"+q+"%").
		Order("title ASC").
		Limit(searchResultLimit).
		Find(&results).Error
	if err != nil {
		log.Printf("Product search failed for %q: %v", q, err)
		c.JSON(http.StatusOK, gin.H{
			"results": []models.Product{},
			"warning": "Search is temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var product models.Product

	product.Title = c.PostForm("title")
	if product.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	product.Slug = c.PostForm("slug")
	if product.Slug == "" {
		product.Slug = utils.Slugify(product.Title)
	}

	var existing models.Product
	if err := h.DB.Where("slug = ?", product.Slug).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A product with this slug already exists"})
		return
	}

	product.Description = c.PostForm("description")

	price, err := strconv.ParseFloat(c.PostForm("price"), 64)
	if err != nil || price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a non-negative number"})
		return
	}
	product.Price = price

	if discount := c.PostForm("discount"); discount != "" {
		d, err := strconv.Atoi(discount)
		if err != nil || d < 0 || d > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "discount must be between 0 and 100"})
			return
		}
		product.Discount = d
	}

	product.Stock, _ = strconv.Atoi(c.PostForm("stock"))
	product.Status = c.PostForm("status")
	if product.Status == "" {
		product.Status = "active"
	}

	// Categories arrive as a comma-separated id list.
	var categories []models.Category
	if categoryIDs := c.PostForm("category_ids"); categoryIDs != "" {
		for _, idStr := range strings.Split(categoryIDs, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			catID, err := uuid.Parse(idStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
				return
			}
			var category models.Category
			if err := h.DB.First(&category, "id = ?", catID).Error; err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
				return
			}
			categories = append(categories, category)
		}
	}
	product.Categories = categories
	product.ID = uuid.New()

	if err := h.DB.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	var productImages []models.ProductImage

	// Uploaded files.
	if form, err := c.MultipartForm(); err == nil {
		for i, fileHeader := range form.File["images"] {
			if err := utils.ValidateFileUpload(fileHeader); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			file, err := fileHeader.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image"})
				return
			}

			imageURL, err := h.Storage.UploadProductImage(
				file,
				fileHeader.Filename,
				fileHeader.Header.Get("Content-Type"),
			)
			file.Close()

			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Image upload failed"})
				return
			}

			productImages = append(productImages, models.ProductImage{
				ProductID: product.ID,
				ImageURL:  imageURL,
				IsPrimary: i == 0,
			})
		}
	}

	// External URLs imported through storage so the catalog never
	// serves images from hosts we don't control.
	if imageURLs := c.PostForm("image_urls"); imageURLs != "" {
		for _, rawURL := range strings.Split(imageURLs, ",") {
			rawURL = strings.TrimSpace(rawURL)
			if rawURL == "" {
				continue
			}
			storedURL, err := h.Storage.DownloadAndUploadImage(rawURL, product.ID.String())
			if err != nil {
				log.Printf("Failed to import image %s: %v", rawURL, err)
				continue
			}
			productImages = append(productImages, models.ProductImage{
				ProductID: product.ID,
				ImageURL:  storedURL,
				IsPrimary: len(productImages) == 0,
			})
		}
	}

	if len(productImages) > 0 {
		if err := h.DB.Create(&productImages).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save product images"})
			return
		}
	}

	h.DB.Preload("Categories").Preload("Images").First(&product, product.ID)
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id := c.Param("id")
	var product models.Product

	if err := h.DB.Preload("Images").Where("id = ?", id).First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	if title := c.PostForm("title"); title != "" {
		product.Title = title
	}
	if slug := c.PostForm("slug"); slug != "" {
		var existing models.Product
		if err := h.DB.Where("slug = ? AND id <> ?", slug, product.ID).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "A product with this slug already exists"})
			return
		}
		product.Slug = slug
	}
	if description, ok := c.GetPostForm("description"); ok {
		product.Description = description
	}
	if price := c.PostForm("price"); price != "" {
		p, err := strconv.ParseFloat(price, 64)
		if err != nil || p < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a non-negative number"})
			return
		}
		product.Price = p
	}
	if discount := c.PostForm("discount"); discount != "" {
		d, err := strconv.Atoi(discount)
		if err != nil || d < 0 || d > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "discount must be between 0 and 100"})
			return
		}
		product.Discount = d
	}
	if stock := c.PostForm("stock"); stock != "" {
		product.Stock, _ = strconv.Atoi(stock)
	}
	if status := c.PostForm("status"); status != "" {
		if status != "active" && status != "hidden" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or hidden"})
			return
		}
		product.Status = status
	}

	if categoryIDs, ok := c.GetPostForm("category_ids"); ok {
		var categories []models.Category
		for _, idStr := range strings.Split(categoryIDs, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			catID, err := uuid.Parse(idStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
				return
			}
			var category models.Category
			if err := h.DB.First(&category, "id = ?", catID).Error; err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
				return
			}
			categories = append(categories, category)
		}
		if err := h.DB.Model(&product).Association("Categories").Replace(categories); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update categories"})
			return
		}
	}

	if form, err := c.MultipartForm(); err == nil {
		files := form.File["images"]
		imagesToDelete := form.Value["delete_images"]

		for _, imageID := range imagesToDelete {
			var productImage models.ProductImage
			if err := h.DB.Where("id = ? AND product_id = ?", imageID, product.ID).First(&productImage).Error; err == nil {
				objectPath, err := utils.ExtractObjectPath(productImage.ImageURL)
				if err == nil && objectPath != "" {
					if err := h.Storage.DeleteFile(objectPath); err != nil {
						log.Println("Failed to delete image from storage:", err)
					}
				}
				h.DB.Delete(&productImage)
			}
		}

		if len(files) > 0 {
			var newProductImages []models.ProductImage
			for i, fileHeader := range files {
				if err := utils.ValidateFileUpload(fileHeader); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}

				file, err := fileHeader.Open()
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image"})
					return
				}

				imageURL, err := h.Storage.UploadProductImage(
					file,
					fileHeader.Filename,
					fileHeader.Header.Get("Content-Type"),
				)
				file.Close()

				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Image upload failed"})
					return
				}

				newProductImages = append(newProductImages, models.ProductImage{
					ProductID: product.ID,
					ImageURL:  imageURL,
					IsPrimary: len(product.Images) == 0 && i == 0,
				})
			}

			if err := h.DB.Create(&newProductImages).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save product images"})
				return
			}
		}
	}

	if primaryImageID := c.PostForm("primary_image_id"); primaryImageID != "" {
		h.DB.Model(&models.ProductImage{}).
			Where("product_id = ?", product.ID).
			Update("is_primary", false)
		h.DB.Model(&models.ProductImage{}).
			Where("id = ? AND product_id = ?", primaryImageID, product.ID).
			Update("is_primary", true)
	}

	if err := h.DB.Save(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}

	h.DB.Preload("Categories").Preload("Images").First(&product, product.ID)
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	var product models.Product

	if err := h.DB.Preload("Images").First(&product, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	for _, productImage := range product.Images {
		objectPath, err := utils.ExtractObjectPath(productImage.ImageURL)
		if err == nil && objectPath != "" {
			if err := h.Storage.DeleteFile(objectPath); err != nil {
				log.Printf("Failed to delete image %s from storage: %v", productImage.ImageURL, err)
			}
		}
		if err := h.DB.Delete(&productImage).Error; err != nil {
			log.Printf("Failed to delete product image record %s: %v", productImage.ID, err)
		}
	}

	if err := h.DB.Delete(&models.Product{}, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
