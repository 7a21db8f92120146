package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yvetteluxe63/yvetteluxe/models"
)

// PaystackGateway verifies the transaction reference produced by the Paystack inline popup.
type PaystackGateway struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewPaystackGateway(baseURL, secretKey string) (*PaystackGateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("PAYSTACK_SECRET_KEY not set")
	}
	return &PaystackGateway{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (p *PaystackGateway) Name() string { return "paystack" }

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

func (p *PaystackGateway) StartTransaction(ctx context.Context, req models.TransactionRequest) (string, error) {
	if req.Token == "" {
		return "", ErrMissingToken
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", p.baseURL, url.PathEscape(req.Token))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("paystack request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read paystack response: %w", err)
	}

	var out paystackVerifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("paystack error (status %d): invalid response", resp.StatusCode)
	}
	if resp.StatusCode >= 400 || !out.Status {
		return "", fmt.Errorf("%w: %s", ErrPaymentDeclined, out.Message)
	}

	switch out.Data.Status {
	case "success":
	case "abandoned":
		return "", ErrPaymentCancelled
	case "failed", "reversed":
		return "", ErrPaymentDeclined
	default:
		return "", fmt.Errorf("%w: status %s", ErrPaymentIncomplete, out.Data.Status)
	}

	if out.Data.Amount != req.AmountMinorUnits || !strings.EqualFold(out.Data.Currency, req.Currency) {
		return "", fmt.Errorf("%w: paid %d %s, expected %d %s", ErrAmountMismatch,
			out.Data.Amount, out.Data.Currency, req.AmountMinorUnits, req.Currency)
	}
	return out.Data.Reference, nil
}
