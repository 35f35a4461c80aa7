package agent

import (
	"regexp"
	"strconv"
	"strings"
)

// IntentKind is the classification of one inbound chat message.
type IntentKind int

const (
	// IntentInvalidAddress is a balance command with a malformed address.
	IntentInvalidAddress IntentKind = iota
	// IntentWalletLookup is a balance command with a plausible address.
	IntentWalletLookup
	// IntentNoSessionYet is any non-lookup message from a sender without
	// a cached snapshot.
	IntentNoSessionYet
	// IntentActivityQuery asks about activity over a trailing window.
	IntentActivityQuery
	// IntentDefaultExplanation is the literal "default" message.
	IntentDefaultExplanation
	// IntentCustomPrompt is any other free-form message.
	IntentCustomPrompt
)

// Intent is the transient classification result; it is never persisted.
type Intent struct {
	Kind    IntentKind
	Address string
	Days    int
	Prompt  string
}

const balancePrefix = "balance "

var activityKeywords = []string{
	"what has my wallet done",
	"recent activity",
	"transactions in last",
	"wallet activity",
	"activity in the last",
	"wallet history",
}

var daysPattern = regexp.MustCompile(`last\s+(\d+)\s+days`)

// IsValidAddress is a syntactic sanity check only: Base58 Solana wallet
// addresses are typically 32-44 characters, so anything in [30,44] is
// allowed through to the chain, which has the final say.
func IsValidAddress(address string) bool {
	return len(address) >= 30 && len(address) <= 44
}

// Classify maps a message onto an intent, in strict priority order:
// balance command first, then the no-session guard, then activity
// queries, then explanation requests. First match wins.
func Classify(text string, hasSession bool) Intent {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if strings.HasPrefix(lower, balancePrefix) {
		address := strings.TrimSpace(trimmed[len(balancePrefix):])
		if !IsValidAddress(address) {
			return Intent{Kind: IntentInvalidAddress}
		}
		return Intent{Kind: IntentWalletLookup, Address: address}
	}

	if !hasSession {
		return Intent{Kind: IntentNoSessionYet}
	}

	if match := daysPattern.FindStringSubmatch(lower); match != nil && containsActivityKeyword(lower) {
		days, err := strconv.Atoi(match[1])
		if err == nil {
			return Intent{Kind: IntentActivityQuery, Days: days}
		}
	}

	if lower == "default" {
		return Intent{Kind: IntentDefaultExplanation}
	}

	return Intent{Kind: IntentCustomPrompt, Prompt: trimmed}
}

func containsActivityKeyword(lower string) bool {
	for _, keyword := range activityKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
