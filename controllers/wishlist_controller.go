package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yvetteluxe63/yvetteluxe/models"
)

type WishlistController struct {
	products ProductLookup
}

func NewWishlistController(products ProductLookup) *WishlistController {
	return &WishlistController{products: products}
}

func (h *WishlistController) Get(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": sess.Wishlist.Items()})
}

// Add saves a product summary sent by the client.
func (h *WishlistController) Add(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	var summary models.ProductSummary
	if err := c.ShouldBindJSON(&summary); err != nil {
		bindFailed(c, err)
		return
	}
	items, err := sess.Wishlist.AddProduct(c.Request.Context(), summary)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddFromCatalog saves a product straight from the catalog mirror.
func (h *WishlistController) AddFromCatalog(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	product, found := h.products.Product(c.Param("productId"))
	if !found {
		fail(c, errProductNotFound)
		return
	}
	items, err := sess.Wishlist.AddProduct(c.Request.Context(), product.Summary())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *WishlistController) Remove(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	items, err := sess.Wishlist.Remove(c.Request.Context(), c.Param("productId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *WishlistController) Clear(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	items, err := sess.Wishlist.Clear(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
