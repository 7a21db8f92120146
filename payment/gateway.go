package payment

import (
	"context"
	"errors"

	"github.com/yvetteluxe63/yvetteluxe/models"
)

var (
	// ErrPaymentCancelled means the shopper abandoned the payment.
	ErrPaymentCancelled = errors.New("payment cancelled")
	ErrPaymentDeclined  = errors.New("payment declined")
	// ErrPaymentIncomplete means the provider has not settled the payment yet.
	ErrPaymentIncomplete = errors.New("payment not completed")
	ErrAmountMismatch    = errors.New("paid amount does not match order total")
	ErrMissingToken      = errors.New("payment token is required")
)

// Gateway completes an external payment and returns the provider's reference.
type Gateway interface {
	StartTransaction(ctx context.Context, req models.TransactionRequest) (string, error)
	Name() string
}
