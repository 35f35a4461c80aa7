// Package config reads service configuration from the environment.
package config

import "os"

// Config aggregates the settings of the whole service.
type Config struct {
	// HTTPAddr is the chat API listen address.
	HTTPAddr string

	// SolanaRPCURL is the JSON-RPC endpoint of the Solana node.
	SolanaRPCURL string

	// TokenAPIURL is the base URL of the token Data API. Token lookups
	// degrade gracefully when unset.
	TokenAPIURL string
	TokenAPIKey string

	// LLM settings. LLMBaseURL is optional and points the client at any
	// OpenAI-compatible endpoint.
	LLMAPIKey  string
	LLMModel   string
	LLMBaseURL string

	// RedisURL switches the session store to Redis when set.
	RedisURL string
}

// Load reads configuration from environment variables, applying
// defaults where a value is optional.
func Load() *Config {
	return &Config{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		SolanaRPCURL: getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		TokenAPIURL:  os.Getenv("TOKEN_DATA_API_URL"),
		TokenAPIKey:  os.Getenv("TOKEN_DATA_API_KEY"),
		LLMAPIKey:    os.Getenv("OPENAI_API_KEY"),
		LLMModel:     getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
		LLMBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
