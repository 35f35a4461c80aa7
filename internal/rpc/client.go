package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solsage/solsage/internal/models"
)

// ErrIncompleteData is returned when one or more of the snapshot
// sub-fetches came back unavailable. The message is user-facing.
var ErrIncompleteData = errors.New("Could not fetch complete data for this wallet. Please check the address.")

// Client is a JSON-RPC client for a Solana node.
type Client struct {
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
}

type jsonRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int         `json:"id"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *jsonRPCError   `json:"error"`
	ID      int             `json:"id"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewClient creates a new RPC client against the given node endpoint.
func NewClient(endpoint string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoint: endpoint,
		logger:   logger,
	}
}

// call makes a JSON-RPC call to the node. Transport failures, non-2xx
// statuses and RPC error objects all collapse into the unavailable sentinel;
// anything else that goes wrong (a response we cannot decode) is
// reported verbatim.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.WarnContext(ctx, "rpc transport failure", "method", method, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", models.ErrUnavailable, method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.WarnContext(ctx, "rpc read failure", "method", method, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", models.ErrUnavailable, method, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "rpc bad status", "method", method, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: %s: status %d", models.ErrUnavailable, method, resp.StatusCode)
	}

	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		c.logger.WarnContext(ctx, "rpc error response",
			"method", method,
			"code", rpcResp.Error.Code,
			"message", rpcResp.Error.Message,
		)
		return nil, fmt.Errorf("%w: %s: RPC error %d: %s", models.ErrUnavailable, method, rpcResp.Error.Code, rpcResp.Error.Message)
	}

	return rpcResp.Result, nil
}

// GetBalance retrieves the wallet balance in SOL.
func (c *Client) GetBalance(ctx context.Context, address string) (float64, error) {
	result, err := c.call(ctx, "getBalance", []string{address})
	if err != nil {
		return 0, err
	}

	var parsed struct {
		Value *uint64 `json:"value"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return 0, fmt.Errorf("failed to unmarshal balance: %w", err)
	}
	if parsed.Value == nil {
		return 0, fmt.Errorf("%w: getBalance: missing value", models.ErrUnavailable)
	}

	return float64(*parsed.Value) / float64(solana.LAMPORTS_PER_SOL), nil
}

// GetAccountInfo retrieves account metadata for the wallet. A null value
// in the response, meaning the account does not exist on chain, is
// treated as unavailable rather than an empty record.
func (c *Client) GetAccountInfo(ctx context.Context, address string) (*models.AccountInfo, error) {
	result, err := c.call(ctx, "getAccountInfo", []string{address})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Value *models.AccountInfo `json:"value"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account info: %w", err)
	}
	if parsed.Value == nil {
		return nil, fmt.Errorf("%w: getAccountInfo: missing value", models.ErrUnavailable)
	}

	return parsed.Value, nil
}

// GetSignaturesForAddress retrieves recent transaction signatures for
// the wallet, newest first as the node returns them.
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string) ([]models.SignatureInfo, error) {
	result, err := c.call(ctx, "getSignaturesForAddress", []string{address})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || string(result) == "null" {
		return nil, fmt.Errorf("%w: getSignaturesForAddress: missing result", models.ErrUnavailable)
	}

	var signatures []models.SignatureInfo
	if err := json.Unmarshal(result, &signatures); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signatures: %w", err)
	}

	return signatures, nil
}

// FetchWalletData builds a full snapshot for the address by issuing the
// balance, account-info and signature fetches concurrently and joining
// all three results. The aggregation is all-or-nothing: a snapshot is
// only returned when every sub-fetch succeeded.
func (c *Client) FetchWalletData(ctx context.Context, address string) (*models.WalletSnapshot, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		c.logger.WarnContext(ctx, "address is not valid base58", "address", address, "error", err)
		return nil, ErrIncompleteData
	}
	addr := pubkey.String()

	var (
		wg      sync.WaitGroup
		balance float64
		info    *models.AccountInfo
		sigs    []models.SignatureInfo
		balErr  error
		infoErr error
		sigErr  error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		balance, balErr = c.GetBalance(ctx, addr)
	}()
	go func() {
		defer wg.Done()
		info, infoErr = c.GetAccountInfo(ctx, addr)
	}()
	go func() {
		defer wg.Done()
		sigs, sigErr = c.GetSignaturesForAddress(ctx, addr)
	}()
	wg.Wait()

	if err := reduceFetchErrors(balErr, infoErr, sigErr); err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "fetched wallet snapshot",
		"address", addr,
		"sol_balance", balance,
		"signatures", len(sigs),
	)

	return &models.WalletSnapshot{
		Address:     addr,
		SolBalance:  balance,
		AccountInfo: *info,
		Signatures:  sigs,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// reduceFetchErrors joins the outcomes of the concurrent sub-fetches
// into one verdict. An unexpected error wins over the unavailable
// sentinel; any sentinel makes the whole aggregation fail.
func reduceFetchErrors(errs ...error) error {
	for _, err := range errs {
		if err != nil && !errors.Is(err, models.ErrUnavailable) {
			return fmt.Errorf("Error fetching wallet data: %v", err)
		}
	}
	for _, err := range errs {
		if errors.Is(err, models.ErrUnavailable) {
			return ErrIncompleteData
		}
	}
	return nil
}
