package models

import "time"

// WalletSnapshot is the cached result of a successful wallet lookup.
// It is immutable once stored: a later lookup replaces the whole value,
// fields are never merged.
type WalletSnapshot struct {
	Address     string          `json:"address"`
	SolBalance  float64         `json:"sol_balance"`
	AccountInfo AccountInfo     `json:"account_info"`
	Signatures  []SignatureInfo `json:"signatures"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// AccountInfo mirrors the value object of a getAccountInfo response.
// Lamports is a pointer because the node can omit it; formatters must
// render "N/A" instead of dividing a missing value.
type AccountInfo struct {
	Lamports   *uint64 `json:"lamports"`
	Owner      string  `json:"owner"`
	Executable bool    `json:"executable"`
	RentEpoch  uint64  `json:"rentEpoch"`
	Space      uint64  `json:"space"`
}

// SignatureInfo is one entry of a getSignaturesForAddress response,
// newest first as returned by the node. BlockTime is a Unix timestamp
// in seconds and may be absent for old or unconfirmed entries.
type SignatureInfo struct {
	Signature          string `json:"signature"`
	Slot               uint64 `json:"slot"`
	BlockTime          *int64 `json:"blockTime"`
	ConfirmationStatus string `json:"confirmationStatus"`
}

// TokenQueryResult is the response shape of the token Data API
// "tokens by address" endpoint.
type TokenQueryResult struct {
	Data struct {
		Tokens []TokenHolding `json:"tokens"`
	} `json:"data"`
}

// TokenHolding is a single token position. An empty TokenAddress marks
// the chain's native asset. TokenBalance is a hex-encoded integer in the
// token's smallest unit.
type TokenHolding struct {
	TokenAddress string       `json:"tokenAddress"`
	TokenBalance string       `json:"tokenBalance"`
	TokenPrices  []TokenPrice `json:"tokenPrices"`
}

// TokenPrice is one price quote attached to a token holding.
type TokenPrice struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

// ChatRequest is an inbound chat message on the HTTP transport.
type ChatRequest struct {
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
}

// ChatReply is the single outbound message produced for each inbound one.
type ChatReply struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
