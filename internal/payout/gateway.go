package payout

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gigworks/marketplace-core/internal/config"
	"github.com/gigworks/marketplace-core/internal/domain"
)

// TransferRequest is a dispatch to the payment gateway.
type TransferRequest struct {
	AccountID      string `json:"account_id"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotency_key"`
	Description    string `json:"description"`
}

// Gateway dispatches money transfers to an external payment provider.
type Gateway interface {
	CreateTransfer(ctx context.Context, req TransferRequest) (transferID string, err error)
}

// HTTPGateway talks to the payment provider over its REST API.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGateway creates an HTTPGateway from configuration.
func NewHTTPGateway(cfg *config.GatewayConfig) *HTTPGateway {
	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
	}
}

type transferResponse struct {
	TransferID string `json:"transfer_id"`
}

// CreateTransfer dispatches one transfer. The idempotency key is forwarded
// so a retried dispatch cannot double-send money on the provider side.
func (g *HTTPGateway) CreateTransfer(ctx context.Context, req TransferRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build transfer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrGatewayUnavailable, resp.StatusCode, respBody)
	}

	var transfer transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&transfer); err != nil {
		return "", fmt.Errorf("failed to decode transfer response: %w", err)
	}

	if transfer.TransferID == "" {
		return "", fmt.Errorf("%w: empty transfer id in response", domain.ErrGatewayUnavailable)
	}

	return transfer.TransferID, nil
}

// VerifyWebhookSignature checks the gateway's HMAC-SHA256 signature over
// the raw callback body. Comparison is constant time.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
