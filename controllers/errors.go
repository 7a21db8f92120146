package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yvetteluxe63/yvetteluxe/common/errors"
	"github.com/yvetteluxe63/yvetteluxe/middleware"
	"github.com/yvetteluxe63/yvetteluxe/payment"
	"github.com/yvetteluxe63/yvetteluxe/repository"
	"github.com/yvetteluxe63/yvetteluxe/services"
)

var (
	errProductNotFound = apperrors.New(http.StatusNotFound, "Product not found", nil)
	errOrderNotFound   = apperrors.New(http.StatusNotFound, "Order not found", nil)

	errPaymentReferenceUsed = apperrors.New(http.StatusConflict, "Payment reference already used", nil)
)

// toAppError maps service and collaborator errors onto HTTP errors.
func toAppError(err error) *apperrors.Error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return apperrors.Validation(verr.Field, verr.Message)
	}

	switch {
	case errors.Is(err, services.ErrCheckoutInProgress):
		return apperrors.ErrCheckoutInProgress
	case errors.Is(err, services.ErrPaymentReferenceUsed):
		return errPaymentReferenceUsed
	case errors.Is(err, payment.ErrPaymentCancelled):
		return apperrors.ErrPaymentCancelled
	case errors.Is(err, payment.ErrPaymentDeclined),
		errors.Is(err, payment.ErrPaymentIncomplete),
		errors.Is(err, payment.ErrAmountMismatch):
		return apperrors.Wrap(apperrors.ErrPaymentFailed, err)
	case errors.Is(err, payment.ErrMissingToken):
		return apperrors.Validation("payment_token", err.Error())
	case errors.Is(err, services.ErrGatewayUnavailable),
		errors.Is(err, services.ErrAuthUnavailable),
		errors.Is(err, services.ErrNoObjectStorage),
		errors.Is(err, services.ErrPresignUnsupported):
		return apperrors.New(http.StatusServiceUnavailable, err.Error(), nil)

	case errors.Is(err, repository.ErrProductNotFound):
		return errProductNotFound
	case errors.Is(err, services.ErrOrderNotFound):
		return errOrderNotFound
	case errors.Is(err, services.ErrInvalidProduct):
		return apperrors.New(http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, services.ErrInvalidCurrency):
		return apperrors.Validation("currency", err.Error())

	case errors.Is(err, services.ErrWrongAdminPassword),
		errors.Is(err, services.ErrInvalidCredentials):
		return apperrors.ErrInvalidCredentials
	case errors.Is(err, repository.ErrEmailTaken):
		return apperrors.New(http.StatusConflict, err.Error(), nil)
	case errors.Is(err, services.ErrInvalidEmail):
		return apperrors.Validation("email", err.Error())
	case isPasswordPolicyError(err):
		return apperrors.Validation("password", err.Error())
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

func isPasswordPolicyError(err error) bool {
	for _, target := range []error{
		services.ErrPasswordTooShort,
		services.ErrPasswordNoLetter,
		services.ErrPasswordNoNumber,
		services.ErrPasswordCommon,
		services.ErrPasswordSequential,
		services.ErrPasswordRepeating,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// fail attaches err for ErrorMiddleware and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(toAppError(err))
	c.Abort()
}

func bindFailed(c *gin.Context, err error) {
	_ = c.Error(apperrors.Wrap(apperrors.ErrBadRequest, err))
	c.Abort()
}

func shopperSession(c *gin.Context) (*services.ShopperSession, bool) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		_ = c.Error(apperrors.ErrMissingSession)
		c.Abort()
	}
	return sess, ok
}
