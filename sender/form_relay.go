package sender

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FormRelay posts mails to a formsubmit-style relay: POST <baseURL>/<inbox> with the fields
// as an urlencoded form. Recipients other than the inbox are passed as "_to" and "_cc".
type FormRelay struct {
	baseURL    string
	inbox      string
	httpClient *http.Client
}

func NewFormRelay(baseURL, inbox string) (*FormRelay, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("FORM_RELAY_URL not set")
	}
	if inbox == "" {
		return nil, fmt.Errorf("ADMIN_EMAIL not set")
	}
	return &FormRelay{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		inbox:      inbox,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (f *FormRelay) Send(ctx context.Context, recipient, subject string, fields map[string]string) error {
	form := url.Values{}
	form.Set("_subject", subject)
	form.Set("_captcha", "false")
	form.Set("_template", "table")
	if recipient != "" && !strings.EqualFold(recipient, f.inbox) {
		form.Set("_to", recipient)
		form.Set("_cc", recipient)
	}
	for k, v := range fields {
		form.Set(k, v)
	}

	endpoint := f.baseURL + "/" + url.PathEscape(f.inbox)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("form relay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("form relay error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
