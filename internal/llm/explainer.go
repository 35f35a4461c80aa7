// Package llm wraps the text-completion collaborator behind the two
// operations the assistant needs: free-form explanations and activity
// summaries.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/solsage/solsage/internal/format"
	"github.com/solsage/solsage/internal/models"
)

const (
	walletContext   = "You are an expert Solana assistant that explains wallet balances to users."
	activityContext = "You are an expert Solana assistant summarizing wallet activities."

	// SummaryFallback replaces the activity summary when the completion
	// call fails; the formatted signature list is still returned.
	SummaryFallback = "Unable to generate detailed summary at this time."
)

// Deterministic prompts (the "default" explanation for a given balance)
// repeat often, so successful explanations are kept for a while.
const explanationTTL = 10 * time.Minute

// Explainer generates wallet explanations and activity summaries.
type Explainer struct {
	model  llms.Model
	cache  *ristretto.Cache[string, string]
	logger *slog.Logger
}

// New creates an Explainer on top of an existing model. Used directly
// by tests; production code goes through NewOpenAI.
func New(model llms.Model, logger *slog.Logger) (*Explainer, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create explanation cache: %w", err)
	}

	return &Explainer{
		model:  model,
		cache:  cache,
		logger: logger,
	}, nil
}

// NewOpenAI creates an Explainer backed by an OpenAI-compatible
// completion API. baseURL is optional and covers providers that speak
// the OpenAI wire format on their own endpoint.
func NewOpenAI(apiKey, model, baseURL string, logger *slog.Logger) (*Explainer, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return New(client, logger)
}

// Explain generates prose for a caller-supplied prompt. There is no
// retry and no local fallback: a completion failure propagates to the
// caller.
func (e *Explainer) Explain(ctx context.Context, prompt string) (string, error) {
	cacheKey := "explain:" + prompt
	if text, ok := e.cache.Get(cacheKey); ok {
		e.logger.DebugContext(ctx, "explanation cache hit")
		return text, nil
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, e.model, walletContext+" "+prompt,
		llms.WithTemperature(0),
	)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	e.cache.SetWithTTL(cacheKey, text, 1, explanationTTL)
	// Flush the buffered write so an immediate repeat hits the cache.
	e.cache.Wait()
	return text, nil
}

// SummarizeActivity formats the filtered signatures and asks the model
// for a natural-language summary of the last `days` days. A completion
// failure is absorbed here: the formatted text always comes back, with
// a fixed fallback standing in for the summary.
func (e *Explainer) SummarizeActivity(ctx context.Context, sigs []models.SignatureInfo, days int) (string, string) {
	formatted := format.Signatures(sigs)
	prompt := fmt.Sprintf(
		"Summarize the wallet's transaction activity in the last %d days based on these transactions:\n%s",
		days, formatted,
	)

	summary, err := llms.GenerateFromSinglePrompt(ctx, e.model, activityContext+" "+prompt,
		llms.WithTemperature(0),
	)
	if err != nil {
		e.logger.WarnContext(ctx, "activity summary completion failed", "error", err)
		return formatted, SummaryFallback
	}

	return formatted, summary
}
