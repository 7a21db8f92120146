package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yvetteluxe63/yvetteluxe/models"
)

// ProductLookup resolves products from the catalog mirror.
type ProductLookup interface {
	Product(id string) (models.Product, bool)
}

type CartController struct {
	products ProductLookup
}

func NewCartController(products ProductLookup) *CartController {
	return &CartController{products: products}
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"omitempty,min=1"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type cartResponse struct {
	models.Cart
	ItemCount int `json:"item_count"`
}

func respondCart(c *gin.Context, status int, cart models.Cart) {
	n := 0
	for _, it := range cart.Items {
		n += it.Quantity
	}
	c.JSON(status, cartResponse{Cart: cart, ItemCount: n})
}

func (h *CartController) Get(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	respondCart(c, http.StatusOK, sess.Cart.Snapshot())
}

// AddItem adds a catalog product. Name, price and image always come from the catalog.
func (h *CartController) AddItem(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	product, found := h.products.Product(req.ProductID)
	if !found {
		fail(c, errProductNotFound)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item := models.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.ImageURL,
		Size:      req.Size,
		Color:     req.Color,
	}
	cart, err := sess.Cart.Add(c.Request.Context(), item, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	respondCart(c, http.StatusOK, cart)
}

func (h *CartController) UpdateItem(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	cart, err := sess.Cart.UpdateQuantity(c.Request.Context(), c.Param("productId"), *req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	respondCart(c, http.StatusOK, cart)
}

func (h *CartController) RemoveItem(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	cart, err := sess.Cart.Remove(c.Request.Context(), c.Param("productId"))
	if err != nil {
		fail(c, err)
		return
	}
	respondCart(c, http.StatusOK, cart)
}

func (h *CartController) Clear(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	cart, err := sess.Cart.Clear(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respondCart(c, http.StatusOK, cart)
}
