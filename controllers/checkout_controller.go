package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yvetteluxe63/yvetteluxe/middleware"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"github.com/yvetteluxe63/yvetteluxe/services"
)

// OrderPlacer runs one checkout attempt.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, sess *services.ShopperSession, form models.CheckoutForm, idempotencyKey string) (*services.CheckoutResult, error)
}

type CheckoutController struct {
	checkout OrderPlacer
}

func NewCheckoutController(checkout OrderPlacer) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

// Prefill returns the contact details a signed-in shopper can start the form with.
func (h *CheckoutController) Prefill(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	form := models.CheckoutForm{PaymentMethod: models.PaymentMethodMobileMoney}
	if user := sess.Auth.User(); user != nil {
		form.Email = user.Email
	}
	if profile := sess.Auth.Profile(); profile != nil {
		form.Name = profile.FullName
	}
	c.JSON(http.StatusOK, form)
}

func (h *CheckoutController) PlaceOrder(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	var form models.CheckoutForm
	if err := c.ShouldBindJSON(&form); err != nil {
		bindFailed(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(middleware.IdempotencyHeader))
	result, err := h.checkout.PlaceOrder(c.Request.Context(), sess, form, key)
	if err != nil {
		fail(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}
