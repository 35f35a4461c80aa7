package tokens

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/solsage/solsage/internal/models"
)

// network passed to the Data API for every wallet query.
const network = "solana-mainnet"

// Client centralizes all token Data API interactions.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type tokensByAddressRequest struct {
	Addresses []addressQuery `json:"addresses"`
}

type addressQuery struct {
	Address  string   `json:"address"`
	Networks []string `json:"networks"`
}

// NewClient creates a new token Data API client. The API key is
// optional; some providers accept unauthenticated requests.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// IsAvailable reports whether a Data API endpoint is configured.
func (c *Client) IsAvailable() bool {
	return c.baseURL != ""
}

// GetTokensByWallet fetches the token holdings for a wallet address.
// Transport-level failures return the unavailable sentinel so callers
// can degrade to an empty holdings view; an undecodable body is an
// unexpected failure and propagates verbatim.
func (c *Client) GetTokensByWallet(ctx context.Context, address string) (*models.TokenQueryResult, error) {
	if !c.IsAvailable() {
		return nil, fmt.Errorf("%w: token data API not configured", models.ErrUnavailable)
	}

	payload := tokensByAddressRequest{
		Addresses: []addressQuery{
			{Address: address, Networks: []string{network}},
		},
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token query: %w", err)
	}

	url := c.baseURL + "/assets/tokens/by-address"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "token query transport failure", "address", address, "error", err)
		return nil, fmt.Errorf("%w: tokens by address: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.WarnContext(ctx, "token query read failure", "address", address, "error", err)
		return nil, fmt.Errorf("%w: tokens by address: %v", models.ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "token query bad status", "address", address, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: tokens by address: status %d", models.ErrUnavailable, resp.StatusCode)
	}

	var result models.TokenQueryResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token query response: %w", err)
	}

	c.logger.DebugContext(ctx, "fetched token holdings",
		"address", address,
		"tokens", len(result.Data.Tokens),
	)

	return &result, nil
}
