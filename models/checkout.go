package models

import "strings"

// CheckoutForm is what the shopper submits at checkout.
type CheckoutForm struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	PaymentMethod string `json:"payment_method"`
	Network       string `json:"network"`
	MomoNumber    string `json:"momo_number"`
	// PaymentToken is the gateway-side handle produced by the client: a Stripe payment
	// method id or a Paystack transaction reference.
	PaymentToken string `json:"payment_token"`
}

// Normalize trims surrounding whitespace from every field.
func (f *CheckoutForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Email = strings.TrimSpace(f.Email)
	f.Address = strings.TrimSpace(f.Address)
	f.PaymentMethod = strings.ToLower(strings.TrimSpace(f.PaymentMethod))
	f.Network = strings.TrimSpace(f.Network)
	f.MomoNumber = strings.TrimSpace(f.MomoNumber)
	f.PaymentToken = strings.TrimSpace(f.PaymentToken)
}

// TransactionRequest is handed to the payment gateway.
type TransactionRequest struct {
	AmountMinorUnits int64
	Currency         string
	Email            string
	Token            string
}

// ContactMessage is the storefront contact form.
type ContactMessage struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required"`
}
