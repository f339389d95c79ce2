package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/config"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
)

// client is the HTTP implementation of Gateway against the configured PSP.
type client struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	http          *retryablehttp.Client
	logger        *logger.Logger
}

// NewClient creates a Gateway over the configured payment service provider.
func NewClient(cfg *config.Configuration, log *logger.Logger) Gateway {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 2
	httpClient.Logger = nil

	return &client{
		baseURL:       cfg.Gateway.BaseURL,
		secretKey:     cfg.Gateway.SecretKey,
		webhookSecret: cfg.Gateway.WebhookSecret,
		http:          httpClient,
		logger:        log,
	}
}

type initializeBody struct {
	Amount   string            `json:"amount"`
	Currency string            `json:"currency"`
	Customer string            `json:"customer"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type initializeResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

func (c *client) InitializeCharge(ctx context.Context, req InitializeChargeRequest) (*InitializeChargeResponse, error) {
	body, err := json.Marshal(initializeBody{
		Amount:   req.Amount.StringFixed(2),
		Currency: req.Currency,
		Customer: req.Customer,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode charge request").
			Mark(ierr.ErrSystem)
	}

	var out initializeResult
	if err := c.send(ctx, http.MethodPost, "/transaction/initialize", body, &out); err != nil {
		return nil, err
	}

	return &InitializeChargeResponse{
		Reference:   out.Reference,
		RedirectURL: out.AuthorizationURL,
		AccessToken: out.AccessCode,
	}, nil
}

type verifyResult struct {
	Status   string            `json:"status"`
	Amount   string            `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

func (c *client) VerifyCharge(ctx context.Context, reference string) (*VerifyChargeResponse, error) {
	var out verifyResult
	path := fmt.Sprintf("/transaction/verify/%s", reference)
	if err := c.send(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(out.Amount)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Gateway returned an unreadable amount").
			Mark(ierr.ErrHTTPClient)
	}

	status := ChargeStatusPending
	switch out.Status {
	case "success", "completed":
		status = ChargeStatusSuccess
	case "failed", "abandoned":
		status = ChargeStatusFailed
	}

	return &VerifyChargeResponse{
		Status:   status,
		Amount:   amount,
		Currency: out.Currency,
		Metadata: out.Metadata,
	}, nil
}

// ValidateWebhookSignature checks the HMAC-SHA512 hex signature the PSP
// sends with webhook deliveries.
func (c *client) ValidateWebhookSignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *client) send(ctx context.Context, method, path string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to build gateway request").
			Mark(ierr.ErrSystem)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Gateway request failed").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return ierr.NewError(fmt.Sprintf("gateway returned %d", resp.StatusCode)).
			WithHint("Gateway rejected the request").
			WithReportableDetails(map[string]any{
				"status_code": resp.StatusCode,
				"path":        path,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return ierr.WithError(err).
				WithHint("Gateway returned an unreadable response").
				Mark(ierr.ErrHTTPClient)
		}
	}
	return nil
}
