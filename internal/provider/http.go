package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
)

// httpDisburser is the shared HTTP plumbing behind the concrete providers.
// Disbursement posts never auto-retry (a retried POST could double-send);
// verification reads retry freely.
type httpDisburser struct {
	baseURL      string
	apiKey       string
	timeout      time.Duration
	sendClient   *retryablehttp.Client
	verifyClient *retryablehttp.Client
	logger       *logger.Logger
}

func newHTTPDisburser(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) *httpDisburser {
	send := retryablehttp.NewClient()
	send.RetryMax = 0
	send.HTTPClient.Timeout = timeout
	send.Logger = nil

	verify := retryablehttp.NewClient()
	verify.RetryMax = 3
	verify.HTTPClient.Timeout = timeout
	verify.Logger = nil

	return &httpDisburser{
		baseURL:      baseURL,
		apiKey:       apiKey,
		timeout:      timeout,
		sendClient:   send,
		verifyClient: verify,
		logger:       log,
	}
}

type transferResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

// post submits a disbursement request. Transport errors and timeouts are
// unknown outcomes, HTTP 4xx is an explicit decline, HTTP 5xx is treated as
// unknown because the transfer may have been accepted before the failure.
func (d *httpDisburser) post(ctx context.Context, path string, payload any) (*transferResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode provider request").
			Mark(ierr.ErrSystem)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to build provider request").
			Mark(ierr.ErrSystem)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.sendClient.Do(req)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Provider did not return a definitive outcome").
			Mark(ierr.ErrProviderTimeout)
	}
	defer resp.Body.Close()

	var out transferResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&out); decodeErr != nil && resp.StatusCode < 300 {
		return nil, ierr.WithError(decodeErr).
			WithHint("Provider returned an unreadable response").
			Mark(ierr.ErrProviderTimeout)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &out, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, ierr.NewError("provider declined transfer").
			WithHintf("Provider declined: %s", out.Message).
			WithReportableDetails(map[string]any{
				"status_code": resp.StatusCode,
				"message":     out.Message,
			}).
			Mark(ierr.ErrProviderFailure)
	default:
		return nil, ierr.NewError(fmt.Sprintf("provider returned %d", resp.StatusCode)).
			WithHint("Provider outcome unknown, transfer may or may not have been accepted").
			Mark(ierr.ErrProviderTimeout)
	}
}

type verifyResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

func (d *httpDisburser) verify(ctx context.Context, path string) (*VerifyResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to build provider verify request").
			Mark(ierr.ErrSystem)
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.verifyClient.Do(req)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Provider verification unavailable").
			Mark(ierr.ErrProviderTimeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &VerifyResult{Found: false}, nil
	}
	if resp.StatusCode >= 300 {
		return nil, ierr.NewError(fmt.Sprintf("provider verify returned %d", resp.StatusCode)).
			WithHint("Provider verification unavailable").
			Mark(ierr.ErrProviderTimeout)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Provider returned an unreadable verify response").
			Mark(ierr.ErrProviderTimeout)
	}

	return &VerifyResult{
		Found:         true,
		Completed:     out.Status == "completed" || out.Status == "successful",
		TransactionID: out.TransactionID,
	}, nil
}
