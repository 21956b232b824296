package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"oftaclinic/api/internal/ids"
	"oftaclinic/api/internal/models"
	"oftaclinic/api/internal/repository"
)

type productRequest struct {
	Name           string              `json:"name" binding:"required,min=2,max=200"`
	Description    string              `json:"description" binding:"required"`
	Price          float64             `json:"price" binding:"required,gt=0"`
	Category       string              `json:"category" binding:"required,oneof=gafas lentes_contacto accesorios"`
	Stock          int                 `json:"stock" binding:"gte=0"`
	Images         []string            `json:"images"`
	Specifications models.ProductSpecs `json:"specifications"`
}

func (h HandlerSet) GetProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	filter := repository.ProductFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
		Limit:    limit,
		Offset:   offset,
	}

	products, total, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": total, "products": products})
}

func (h HandlerSet) GetProductByID(c *gin.Context) {
	product, err := h.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h HandlerSet) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	product := models.Product{
		ID:             ids.New(),
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		Category:       models.ProductCategory(req.Category),
		Stock:          req.Stock,
		Images:         req.Images,
		Specifications: req.Specifications,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.products.Create(c.Request.Context(), product); err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

func (h HandlerSet) UpdateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	product, err := h.products.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.serverError(c, err)
		return
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.Category = models.ProductCategory(req.Category)
	product.Stock = req.Stock
	product.Images = req.Images
	product.Specifications = req.Specifications
	product.UpdatedAt = time.Now().UTC()

	if err := h.products.Update(ctx, product); err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h HandlerSet) DeleteProduct(c *gin.Context) {
	err := h.products.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deactivated"})
}
