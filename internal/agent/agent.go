// Package agent is the conversational core: it routes each inbound chat
// message against the sender's session state and produces exactly one
// reply.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/solsage/solsage/internal/format"
	"github.com/solsage/solsage/internal/models"
	"github.com/solsage/solsage/internal/session"
)

// WalletFetcher produces a full wallet snapshot, all-or-nothing.
type WalletFetcher interface {
	FetchWalletData(ctx context.Context, address string) (*models.WalletSnapshot, error)
}

// TokenFetcher retrieves the wallet's token holdings.
type TokenFetcher interface {
	GetTokensByWallet(ctx context.Context, address string) (*models.TokenQueryResult, error)
}

// ExplanationGenerator is the LLM collaborator boundary.
type ExplanationGenerator interface {
	Explain(ctx context.Context, prompt string) (string, error)
	SummarizeActivity(ctx context.Context, sigs []models.SignatureInfo, days int) (formatted string, summary string)
}

const (
	msgInvalidAddress = "❌ Invalid wallet address format. Please try again."
	msgNoSession      = "⚠️ Please send a wallet address first using: balance <wallet_address>"

	lookupFooter = "Please send me a custom prompt to explain this balance, " +
		"or send 'default' to use the standard explanation.\n" +
		"You can also ask about your wallet activity, e.g., 'What has my wallet done in the last 7 days?'"
)

// Agent holds the collaborators of the session core. All state lives in
// the injected session store.
type Agent struct {
	wallet    WalletFetcher
	tokens    TokenFetcher
	explainer ExplanationGenerator
	sessions  session.Store
	logger    *slog.Logger
	now       func() time.Time
}

// New creates the session core with its collaborators injected.
func New(wallet WalletFetcher, tokens TokenFetcher, explainer ExplanationGenerator, sessions session.Store, logger *slog.Logger) *Agent {
	return &Agent{
		wallet:    wallet,
		tokens:    tokens,
		explainer: explainer,
		sessions:  sessions,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleMessage processes one inbound message and returns the single
// reply text. A returned error means no reply could be produced and the
// transport decides how to apologize; everything else, including data
// fetch failures, comes back as reply text.
func (a *Agent) HandleMessage(ctx context.Context, senderID, text string) (string, error) {
	a.logger.InfoContext(ctx, "message received", "sender", senderID, "text", text)

	cached, hasSession, err := a.sessions.Get(ctx, senderID)
	if err != nil {
		// A broken session read degrades to "no session" so the chat
		// surface stays responsive.
		a.logger.ErrorContext(ctx, "session read failed", "sender", senderID, "error", err)
		cached, hasSession = nil, false
	}

	intent := Classify(text, hasSession)
	switch intent.Kind {
	case IntentInvalidAddress:
		return msgInvalidAddress, nil
	case IntentWalletLookup:
		return a.handleLookup(ctx, senderID, intent.Address)
	case IntentNoSessionYet:
		return msgNoSession, nil
	case IntentActivityQuery:
		return a.handleActivity(ctx, cached, intent.Days), nil
	case IntentDefaultExplanation, IntentCustomPrompt:
		return a.handleExplain(ctx, cached, intent)
	default:
		return "", fmt.Errorf("unhandled intent kind %d", intent.Kind)
	}
}

type tokenOutcome struct {
	result *models.TokenQueryResult
	err    error
}

// handleLookup runs the wallet snapshot fetch and the token holdings
// fetch concurrently, waits for both, and replies with the composite
// lookup message. The session is only written on full success.
func (a *Agent) handleLookup(ctx context.Context, senderID, address string) (string, error) {
	tokenCh := make(chan tokenOutcome, 1)
	go func() {
		result, err := a.tokens.GetTokensByWallet(ctx, address)
		tokenCh <- tokenOutcome{result: result, err: err}
	}()

	snapshot, walletErr := a.wallet.FetchWalletData(ctx, address)
	token := <-tokenCh

	if token.err != nil && !errors.Is(token.err, models.ErrUnavailable) {
		return "❌ Error fetching wallet info: " + token.err.Error(), nil
	}
	if walletErr != nil {
		return "❌ " + walletErr.Error(), nil
	}

	// Unavailable token data degrades to the empty-holdings view.
	var tokenSummary string
	if token.err != nil {
		tokenSummary = format.TokenSummary(nil)
	} else {
		tokenSummary = format.TokenSummary(token.result)
	}

	if err := a.sessions.Set(ctx, senderID, snapshot); err != nil {
		a.logger.ErrorContext(ctx, "session write failed", "sender", senderID, "error", err)
	}

	reply := fmt.Sprintf(
		"🔐 Wallet: `%s`\n💰 Balance: `%.4f SOL`\n\n🪙 Tokens held \n\n \n%s\n\n%s",
		snapshot.Address, snapshot.SolBalance, tokenSummary, lookupFooter,
	)
	return reply, nil
}

// handleActivity filters the cached signatures to the trailing window
// and asks for an AI summary of what remains. Signatures without a
// block time never make it into a window.
func (a *Agent) handleActivity(ctx context.Context, snapshot *models.WalletSnapshot, days int) string {
	cutoff := a.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	filtered := make([]models.SignatureInfo, 0, len(snapshot.Signatures))
	for _, sig := range snapshot.Signatures {
		if sig.BlockTime == nil {
			continue
		}
		if !time.Unix(*sig.BlockTime, 0).UTC().Before(cutoff) {
			filtered = append(filtered, sig)
		}
	}

	if len(filtered) == 0 {
		return fmt.Sprintf("ℹ️ No transactions found in the last %d days.", days)
	}

	formatted, summary := a.explainer.SummarizeActivity(ctx, filtered, days)
	return fmt.Sprintf(
		"🗓️ Wallet activity in the last %d days:\n\n%s\n\n🧠 AI Summary:\n%s",
		days, formatted, summary,
	)
}

// handleExplain generates prose for the message (or the fixed default
// prompt) and appends the cached account-info and signature blocks,
// reformatted from the snapshot rather than refetched.
func (a *Agent) handleExplain(ctx context.Context, snapshot *models.WalletSnapshot, intent Intent) (string, error) {
	prompt := intent.Prompt
	if intent.Kind == IntentDefaultExplanation {
		prompt = fmt.Sprintf("What does it mean for a user to have %.4f SOL in their wallet?", snapshot.SolBalance)
	}

	explanation, err := a.explainer.Explain(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("explanation failed: %w", err)
	}

	reply := fmt.Sprintf(
		"🧠 AI Explanation based on your prompt:\n\n%s\n\n📝 Account Info:\n%s\n\n📝 Transaction Signatures:\n%s",
		explanation,
		format.AccountInfo(snapshot.AccountInfo),
		format.Signatures(snapshot.Signatures),
	)
	return reply, nil
}
