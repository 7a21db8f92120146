package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"github.com/yvetteluxe63/yvetteluxe/services"
)

// ProductCatalog is the read side of the admin catalog.
type ProductCatalog interface {
	ProductLookup
	Products() []models.Product
	Currency() string
	Loading() bool
}

// ContactSender forwards the storefront contact form.
type ContactSender interface {
	Contact(ctx context.Context, msg models.ContactMessage) error
}

// CatalogController serves the public storefront endpoints.
type CatalogController struct {
	catalog ProductCatalog
	contact ContactSender
}

func NewCatalogController(catalog ProductCatalog, contact ContactSender) *CatalogController {
	return &CatalogController{catalog: catalog, contact: contact}
}

func (h *CatalogController) ListProducts(c *gin.Context) {
	var q models.ProductQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}
	products := services.FilterProducts(h.catalog.Products(), q)
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    len(products),
		"currency": h.catalog.Currency(),
		"loading":  h.catalog.Loading(),
	})
}

func (h *CatalogController) GetProduct(c *gin.Context) {
	product, ok := h.catalog.Product(c.Param("id"))
	if !ok {
		fail(c, errProductNotFound)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CatalogController) Featured(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": services.Featured(h.catalog.Products(), services.FeaturedLimit)})
}

func (h *CatalogController) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": services.Categories(h.catalog.Products())})
}

func (h *CatalogController) Currency(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"currency": h.catalog.Currency()})
}

func (h *CatalogController) Contact(c *gin.Context) {
	var msg models.ContactMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		bindFailed(c, err)
		return
	}
	if err := h.contact.Contact(c.Request.Context(), msg); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message sent successfully! We'll get back to you soon."})
}
