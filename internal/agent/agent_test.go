package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solsage/solsage/internal/format"
	"github.com/solsage/solsage/internal/models"
	"github.com/solsage/solsage/internal/rpc"
	"github.com/solsage/solsage/internal/session"
)

const testAddress = "9xQeWvG816bUx9EPowjZ5NSTZxbLGZcW"

// Behavior-focused fakes: we set what each collaborator should return,
// not verify call sequences.

type fakeWallet struct {
	snapshot *models.WalletSnapshot
	err      error
}

func (f *fakeWallet) FetchWalletData(_ context.Context, address string) (*models.WalletSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	snapshot := *f.snapshot
	snapshot.Address = address
	return &snapshot, nil
}

type fakeTokens struct {
	result *models.TokenQueryResult
	err    error
}

func (f *fakeTokens) GetTokensByWallet(_ context.Context, _ string) (*models.TokenQueryResult, error) {
	return f.result, f.err
}

type fakeExplainer struct {
	explanation string
	explainErr  error
	summary     string

	lastPrompt string
	lastSigs   []models.SignatureInfo
}

func (f *fakeExplainer) Explain(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	if f.explainErr != nil {
		return "", f.explainErr
	}
	return f.explanation, nil
}

func (f *fakeExplainer) SummarizeActivity(_ context.Context, sigs []models.SignatureInfo, _ int) (string, string) {
	f.lastSigs = sigs
	return format.Signatures(sigs), f.summary
}

func unixPtr(t time.Time) *int64 {
	ts := t.Unix()
	return &ts
}

func testSnapshot() *models.WalletSnapshot {
	lamports := uint64(2_500_000_000)
	now := time.Now().UTC()
	return &models.WalletSnapshot{
		Address:    testAddress,
		SolBalance: 2.5,
		AccountInfo: models.AccountInfo{
			Lamports:  &lamports,
			Owner:     "11111111111111111111111111111111",
			RentEpoch: 361,
			Space:     0,
		},
		Signatures: []models.SignatureInfo{
			{Signature: "sig-recent", Slot: 300, BlockTime: unixPtr(now.Add(-24 * time.Hour)), ConfirmationStatus: "finalized"},
			{Signature: "sig-older", Slot: 200, BlockTime: unixPtr(now.Add(-8 * 24 * time.Hour)), ConfirmationStatus: "finalized"},
			{Signature: "sig-ancient", Slot: 100, BlockTime: unixPtr(now.Add(-40 * 24 * time.Hour)), ConfirmationStatus: "finalized"},
			{Signature: "sig-no-time", Slot: 50, ConfirmationStatus: "finalized"},
		},
		FetchedAt: now,
	}
}

func newTestAgent(t *testing.T, wallet *fakeWallet, tokens *fakeTokens, explainer *fakeExplainer) *Agent {
	t.Helper()
	sessions, err := session.NewMemoryStore()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(wallet, tokens, explainer, sessions, logger)
}

func TestHandleMessage_LookupSuccess(t *testing.T) {
	agent := newTestAgent(t,
		&fakeWallet{snapshot: testSnapshot()},
		&fakeTokens{err: fmt.Errorf("%w: not configured", models.ErrUnavailable)},
		&fakeExplainer{},
	)

	reply, err := agent.HandleMessage(context.Background(), "sender-a", "balance "+testAddress)
	require.NoError(t, err)

	assert.Contains(t, reply, "Wallet: `"+testAddress+"`")
	assert.Contains(t, reply, "Balance: `2.5000 SOL`")
	assert.Contains(t, reply, "No tokens found.")
	assert.Contains(t, reply, "send 'default'")
}

func TestHandleMessage_InvalidAddress(t *testing.T) {
	agent := newTestAgent(t, &fakeWallet{}, &fakeTokens{}, &fakeExplainer{})

	reply, err := agent.HandleMessage(context.Background(), "sender-a", "balance nope")
	require.NoError(t, err)
	assert.Equal(t, msgInvalidAddress, reply)

	// Failed validation must not create a session.
	reply, err = agent.HandleMessage(context.Background(), "sender-a", "default")
	require.NoError(t, err)
	assert.Equal(t, msgNoSession, reply)
}

func TestHandleMessage_IncompleteDataDoesNotStoreSession(t *testing.T) {
	agent := newTestAgent(t,
		&fakeWallet{err: rpc.ErrIncompleteData},
		&fakeTokens{},
		&fakeExplainer{},
	)

	reply, err := agent.HandleMessage(context.Background(), "sender-a", "balance "+testAddress)
	require.NoError(t, err)
	assert.Equal(t, "❌ "+rpc.ErrIncompleteData.Error(), reply)

	reply, err = agent.HandleMessage(context.Background(), "sender-a", "default")
	require.NoError(t, err)
	assert.Equal(t, msgNoSession, reply)
}

func TestHandleMessage_TokenDecodeFailureAborts(t *testing.T) {
	agent := newTestAgent(t,
		&fakeWallet{snapshot: testSnapshot()},
		&fakeTokens{err: errors.New("failed to unmarshal token query response")},
		&fakeExplainer{},
	)

	reply, err := agent.HandleMessage(context.Background(), "sender-a", "balance "+testAddress)
	require.NoError(t, err)
	assert.Contains(t, reply, "Error fetching wallet info:")

	reply, err = agent.HandleMessage(context.Background(), "sender-a", "default")
	require.NoError(t, err)
	assert.Equal(t, msgNoSession, reply)
}

func TestHandleMessage_TokenSummaryInReply(t *testing.T) {
	result := &models.TokenQueryResult{}
	result.Data.Tokens = []models.TokenHolding{
		{TokenBalance: "0x9502f9000", TokenPrices: []models.TokenPrice{{Currency: "usd", Value: "150.00"}}},
	}

	agent := newTestAgent(t,
		&fakeWallet{snapshot: testSnapshot()},
		&fakeTokens{result: result},
		&fakeExplainer{},
	)

	reply, err := agent.HandleMessage(context.Background(), "sender-a", "balance "+testAddress)
	require.NoError(t, err)
	assert.Contains(t, reply, format.NativeTokenLabel)
	assert.Contains(t, reply, "40.000000 SOL")
}

func TestHandleMessage_DefaultExplanationUsesCachedBalance(t *testing.T) {
	explainer := &fakeExplainer{explanation: "plenty of SOL"}
	agent := newTestAgent(t,
		&fakeWallet{snapshot: testSnapshot()},
		&fakeTokens{err: fmt.Errorf("%w: off", models.ErrUnavailable)},
		explainer,
	)

	_, err := agent.HandleMessage(context.Background(), "sender-a", "balance "+testAddress)
	require.NoError(t, err)

	reply, err := agent.HandleMessage(context.Background(), "sender-a", "default")
	require.NoError(t, err)

	assert.Equal(t, "What does it mean for a user to have 2.5000 SOL in their wallet?", explainer.lastPrompt)
	assert.Contains(t, reply, "plenty of SOL")
	assert.Contains(t, reply, "Account Info:")
	assert.Contains(t, reply, "Transaction Signatures:")
}

func TestHandleMessage_CustomPromptPassedVerbatim(t *testing.T) {
	explainer := &fakeExplainer{explanation: "here you go"}
	agent := newTestAgent(t,
		&fakeWallet{snapshot: testSnapshot()},
		&fakeTokens{err: fmt.Errorf("%w: off", models.ErrUnavailable)},
		explainer,
	)

	_, err := agent.HandleMessage(context.Background(), "sender-a", "balance "+testAddress)
	require.NoError(t, err)

	_, err = agent.HandleMessage(context.Background(), "sender-a", "is this enough to stake?")
	require.NoError(t, err)
	assert.Equal(t, "is this enough to stake?", explainer.lastPrompt)
}

func TestHandleMessage_ExplainFailurePropagates(t *testing.T) {
	agent := newTestAgent(t,
		&fakeWallet{snapshot: testSnapshot()},
		&fakeTokens{err: fmt.Errorf("%w: off", models.ErrUnavailable)},
		&fakeExplainer{explainErr: errors.New("completion backend down")},
	)

	_, err := agent.HandleMessage(context.Background(), "sender-a", "balance "+testAddress)
	require.NoError(t, err)

	_, err = agent.HandleMessage(context.Background(), "sender-a", "explain please")
	require.Error(t, err)
}

func TestHandleMessage_ActivityFilterWindow(t *testing.T) {
	explainer := &fakeExplainer{summary: "one recent transfer"}
	agent := newTestAgent(t,
		&fakeWallet{snapshot: testSnapshot()},
		&fakeTokens{err: fmt.Errorf("%w: off", models.ErrUnavailable)},
		explainer,
	)

	_, err := agent.HandleMessage(context.Background(), "sender-a", "balance "+testAddress)
	require.NoError(t, err)

	reply, err := agent.HandleMessage(context.Background(), "sender-a", "recent activity in the last 7 days")
	require.NoError(t, err)

	// Only the 1-day-old signature is inside the window; entries without
	// a block time are always excluded.
	require.Len(t, explainer.lastSigs, 1)
	assert.Equal(t, "sig-recent", explainer.lastSigs[0].Signature)

	assert.Contains(t, reply, "Wallet activity in the last 7 days")
	assert.Contains(t, reply, "one recent transfer")
}

func TestHandleMessage_ActivityEmptyWindow(t *testing.T) {
	snapshot := testSnapshot()
	snapshot.Signatures = snapshot.Signatures[1:] // oldest entries only

	agent := newTestAgent(t,
		&fakeWallet{snapshot: snapshot},
		&fakeTokens{err: fmt.Errorf("%w: off", models.ErrUnavailable)},
		&fakeExplainer{},
	)

	_, err := agent.HandleMessage(context.Background(), "sender-a", "balance "+testAddress)
	require.NoError(t, err)

	reply, err := agent.HandleMessage(context.Background(), "sender-a", "what has my wallet done in the last 2 days")
	require.NoError(t, err)
	assert.Equal(t, "ℹ️ No transactions found in the last 2 days.", reply)
}

func TestHandleMessage_SessionIsolation(t *testing.T) {
	agent := newTestAgent(t,
		&fakeWallet{snapshot: testSnapshot()},
		&fakeTokens{err: fmt.Errorf("%w: off", models.ErrUnavailable)},
		&fakeExplainer{explanation: "ok"},
	)

	_, err := agent.HandleMessage(context.Background(), "sender-a", "balance "+testAddress)
	require.NoError(t, err)

	reply, err := agent.HandleMessage(context.Background(), "sender-b", "default")
	require.NoError(t, err)
	assert.Equal(t, msgNoSession, reply)
}

func TestHandleMessage_LookupReplacesSession(t *testing.T) {
	wallet := &fakeWallet{snapshot: testSnapshot()}
	explainer := &fakeExplainer{explanation: "ok"}
	agent := newTestAgent(t, wallet,
		&fakeTokens{err: fmt.Errorf("%w: off", models.ErrUnavailable)},
		explainer,
	)

	_, err := agent.HandleMessage(context.Background(), "sender-a", "balance "+testAddress)
	require.NoError(t, err)

	replacement := testSnapshot()
	replacement.SolBalance = 7.25
	wallet.snapshot = replacement

	_, err = agent.HandleMessage(context.Background(), "sender-a", "balance "+testAddress)
	require.NoError(t, err)

	_, err = agent.HandleMessage(context.Background(), "sender-a", "default")
	require.NoError(t, err)
	assert.Equal(t, "What does it mean for a user to have 7.2500 SOL in their wallet?", explainer.lastPrompt)
}
