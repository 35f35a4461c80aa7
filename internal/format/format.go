// Package format renders chain data into the text blocks used in chat
// replies. Everything here is pure: no I/O, no clock, same input always
// yields the same output.
package format

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/solsage/solsage/internal/models"
)

// NativeTokenLabel is the display name used for the chain's native
// asset in token summaries.
const NativeTokenLabel = "SOL (native)"

const (
	lamportsPerSol   = 1_000_000_000
	splTokenDecimals = 1_000_000
)

// BlockTime renders a Unix timestamp as a human-readable UTC string.
func BlockTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05") + " UTC"
}

// Signatures renders a transaction signature list, one line per entry.
// A nil list stands for signature data that was unavailable.
func Signatures(sigs []models.SignatureInfo) string {
	if sigs == nil {
		return "❌ No transaction signatures found."
	}

	lines := make([]string, 0, len(sigs))
	for _, sig := range sigs {
		blockTime := "N/A"
		if sig.BlockTime != nil {
			blockTime = BlockTime(*sig.BlockTime)
		}
		signature := sig.Signature
		if signature == "" {
			signature = "N/A"
		}
		status := sig.ConfirmationStatus
		if status == "" {
			status = "N/A"
		}
		lines = append(lines, fmt.Sprintf(
			"- Signature: %s, Block Time: %s, Slot: %d, Status: %s",
			signature, blockTime, sig.Slot, status,
		))
	}
	return strings.Join(lines, "\n")
}

// AccountInfo renders the account metadata block. A missing lamports
// value renders as N/A instead of being divided into SOL.
func AccountInfo(info models.AccountInfo) string {
	lamports := "N/A"
	if info.Lamports != nil {
		sol := float64(*info.Lamports) / lamportsPerSol
		lamports = fmt.Sprintf("%d lamports (≈ %.4f SOL)", *info.Lamports, sol)
	}
	owner := info.Owner
	if owner == "" {
		owner = "N/A"
	}

	return fmt.Sprintf(`📊 Account Info:
- **Lamports**: %s
- **Executable**: %t
- **Owner**: %s
- **Rent Epoch**: %d
- **Space**: %d bytes`,
		lamports, info.Executable, owner, info.RentEpoch, info.Space)
}

// TokenSummary renders the holdings of a token query, one block per
// token. A nil result stands for token data that was unavailable.
func TokenSummary(result *models.TokenQueryResult) string {
	if result == nil || len(result.Data.Tokens) == 0 {
		return "No tokens found."
	}

	lines := make([]string, 0, len(result.Data.Tokens))
	for _, token := range result.Data.Tokens {
		name := token.TokenAddress
		native := name == ""
		if native {
			name = NativeTokenLabel
		}

		balanceVal, balanceDisplay := tokenBalance(token.TokenBalance, native)

		priceStr := "N/A"
		usdValue := "N/A"
		if len(token.TokenPrices) > 0 {
			if price, err := strconv.ParseFloat(token.TokenPrices[0].Value, 64); err == nil {
				priceStr = fmt.Sprintf("$%.2f", price)
				usdValue = fmt.Sprintf("$%.4f", balanceVal*price)
			}
		}

		lines = append(lines, fmt.Sprintf(
			"🔹 %s\n\nBalance: %s\n\nMarket Price: %s\n\nWallet Balance: %s\n\n%s",
			name, balanceDisplay, priceStr, usdValue, strings.Repeat("-", 30),
		))
	}
	return strings.Join(lines, "\n")
}

// tokenBalance parses a hex-encoded raw balance and scales it to a
// display amount. Unparsable balances render as "0" instead of failing
// the whole summary.
func tokenBalance(hexBalance string, native bool) (float64, string) {
	if hexBalance == "" {
		hexBalance = "0x0"
	}

	raw, ok := new(big.Int).SetString(strings.TrimPrefix(hexBalance, "0x"), 16)
	if !ok {
		return 0, "0"
	}

	divisor := big.NewFloat(splTokenDecimals)
	unit := "tokens"
	if native {
		divisor = big.NewFloat(lamportsPerSol)
		unit = "SOL"
	}

	scaled := new(big.Float).Quo(new(big.Float).SetInt(raw), divisor)
	val, _ := scaled.Float64()
	return val, fmt.Sprintf("%.6f %s", val, unit)
}
