package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solsage/solsage/internal/models"
)

// System program address: syntactically valid base58 and 32 bytes long.
const testAddress = "11111111111111111111111111111111"

// fakeNode serves canned JSON-RPC responses per method. Methods listed
// in failing get an RPC error response instead.
func fakeNode(t *testing.T, failing map[string]bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		if failing[req.Method] {
			fmt.Fprint(w, `{"jsonrpc":"2.0","error":{"code":-32005,"message":"node is behind"},"id":1}`)
			return
		}

		switch req.Method {
		case "getBalance":
			fmt.Fprint(w, `{"jsonrpc":"2.0","result":{"context":{"slot":1},"value":2500000000},"id":1}`)
		case "getAccountInfo":
			fmt.Fprint(w, `{"jsonrpc":"2.0","result":{"context":{"slot":1},"value":{"lamports":2500000000,"owner":"11111111111111111111111111111111","executable":false,"rentEpoch":361,"space":0}},"id":1}`)
		case "getSignaturesForAddress":
			fmt.Fprint(w, `{"jsonrpc":"2.0","result":[{"signature":"sig-1","slot":300,"blockTime":1700000000,"confirmationStatus":"finalized"},{"signature":"sig-2","slot":200,"blockTime":null,"confirmationStatus":"confirmed"}],"id":1}`)
		default:
			t.Fatalf("unexpected method %q", req.Method)
		}
	}))
}

func newTestClient(endpoint string) *Client {
	return NewClient(endpoint, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetchWalletData_Success(t *testing.T) {
	node := fakeNode(t, nil)
	defer node.Close()

	client := newTestClient(node.URL)
	snapshot, err := client.FetchWalletData(context.Background(), testAddress)
	require.NoError(t, err)

	assert.Equal(t, testAddress, snapshot.Address)
	assert.InDelta(t, 2.5, snapshot.SolBalance, 1e-9)
	require.NotNil(t, snapshot.AccountInfo.Lamports)
	assert.Equal(t, uint64(2_500_000_000), *snapshot.AccountInfo.Lamports)
	require.Len(t, snapshot.Signatures, 2)
	assert.Equal(t, "sig-1", snapshot.Signatures[0].Signature)
	require.NotNil(t, snapshot.Signatures[0].BlockTime)
	assert.Nil(t, snapshot.Signatures[1].BlockTime)
}

func TestFetchWalletData_AllOrNothing(t *testing.T) {
	// Every combination of 1, 2 or 3 failing sub-fetches must fail the
	// whole aggregation; a partial snapshot is never returned.
	methods := []string{"getBalance", "getAccountInfo", "getSignaturesForAddress"}

	var combos []map[string]bool
	for mask := 1; mask < 8; mask++ {
		failing := map[string]bool{}
		for i, method := range methods {
			if mask&(1<<i) != 0 {
				failing[method] = true
			}
		}
		combos = append(combos, failing)
	}

	for _, failing := range combos {
		node := fakeNode(t, failing)
		client := newTestClient(node.URL)

		snapshot, err := client.FetchWalletData(context.Background(), testAddress)
		assert.Nil(t, snapshot)
		assert.ErrorIs(t, err, ErrIncompleteData)

		node.Close()
	}
}

func TestFetchWalletData_InvalidBase58(t *testing.T) {
	node := fakeNode(t, nil)
	defer node.Close()

	client := newTestClient(node.URL)
	// Length is plausible but 0 is not a base58 character.
	snapshot, err := client.FetchWalletData(context.Background(), "000000000000000000000000000000")
	assert.Nil(t, snapshot)
	assert.ErrorIs(t, err, ErrIncompleteData)
}

func TestFetchWalletData_UndecodableResponse(t *testing.T) {
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "upstream proxy error")
	}))
	defer node.Close()

	client := newTestClient(node.URL)
	snapshot, err := client.FetchWalletData(context.Background(), testAddress)
	assert.Nil(t, snapshot)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIncompleteData)
	assert.Contains(t, err.Error(), "Error fetching wallet data:")
}

func TestGetBalance_TransportFailureIsUnavailable(t *testing.T) {
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer node.Close()

	client := newTestClient(node.URL)
	_, err := client.GetBalance(context.Background(), testAddress)
	assert.ErrorIs(t, err, models.ErrUnavailable)
}

func TestGetAccountInfo_NullValueIsUnavailable(t *testing.T) {
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","result":{"context":{"slot":1},"value":null},"id":1}`)
	}))
	defer node.Close()

	client := newTestClient(node.URL)
	_, err := client.GetAccountInfo(context.Background(), testAddress)
	assert.ErrorIs(t, err, models.ErrUnavailable)
}

func TestReduceFetchErrors(t *testing.T) {
	unavailable := fmt.Errorf("%w: getBalance: boom", models.ErrUnavailable)
	hard := errors.New("failed to unmarshal response")

	tests := []struct {
		name string
		errs []error
		want error
	}{
		{"all nil", []error{nil, nil, nil}, nil},
		{"one unavailable", []error{nil, unavailable, nil}, ErrIncompleteData},
		{"all unavailable", []error{unavailable, unavailable, unavailable}, ErrIncompleteData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reduceFetchErrors(tt.errs...)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	// A hard failure wins over the sentinel and carries its cause.
	err := reduceFetchErrors(unavailable, hard, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIncompleteData)
	assert.Contains(t, err.Error(), "failed to unmarshal response")
}
