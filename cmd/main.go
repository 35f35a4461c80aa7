package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/solsage/solsage/internal/agent"
	"github.com/solsage/solsage/internal/api"
	"github.com/solsage/solsage/internal/config"
	"github.com/solsage/solsage/internal/llm"
	"github.com/solsage/solsage/internal/rpc"
	"github.com/solsage/solsage/internal/session"
	"github.com/solsage/solsage/internal/tokens"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "No .env file found or error loading it: %v\n", err)
	}

	cfg := config.Load()

	var (
		httpAddr    = flag.String("http-addr", cfg.HTTPAddr, "HTTP server address")
		openaiKey   = flag.String("openai-key", "", "OpenAI API key (can also be set via OPENAI_API_KEY env var)")
		model       = flag.String("model", cfg.LLMModel, "Completion model name")
		walletAddr  = flag.String("wallet", "", "Wallet address to look up once and exit")
		showVersion = flag.Bool("version", false, "Show version and exit")
		verbose     = flag.Bool("v", false, "Verbose mode - debug-level logging")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("Solsage v1.0.0")
		fmt.Println("Conversational Solana wallet assistant")
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if *openaiKey != "" {
		cfg.LLMAPIKey = *openaiKey
	}
	if cfg.LLMAPIKey == "" {
		logger.Error("OpenAI API key is required. Set OPENAI_API_KEY or use -openai-key")
		os.Exit(1)
	}
	cfg.LLMModel = *model

	core, err := buildCore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	if *walletAddr != "" {
		lookupOnce(core, *walletAddr, logger)
		return
	}

	runServer(*httpAddr, core, logger)
}

// buildCore wires the session core together: chain client, token
// client, explainer and session store.
func buildCore(cfg *config.Config, logger *slog.Logger) (*agent.Agent, error) {
	rpcClient := rpc.NewClient(cfg.SolanaRPCURL, logger)
	tokenClient := tokens.NewClient(cfg.TokenAPIURL, cfg.TokenAPIKey, logger)

	explainer, err := llm.NewOpenAI(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMBaseURL, logger)
	if err != nil {
		return nil, err
	}

	var sessions session.Store
	if cfg.RedisURL != "" {
		store, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("using redis session store")
		sessions = store
	} else {
		store, err := session.NewMemoryStore()
		if err != nil {
			return nil, err
		}
		sessions = store
	}

	return agent.New(rpcClient, tokenClient, explainer, sessions, logger), nil
}

// lookupOnce runs a single balance command from the terminal and prints
// the reply.
func lookupOnce(core *agent.Agent, address string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reply, err := core.HandleMessage(ctx, "cli", "balance "+address)
	if err != nil {
		logger.Error("lookup failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(reply)
}

// runServer starts the chat API and blocks until a shutdown signal or a
// server error.
func runServer(httpAddr string, core *agent.Agent, logger *slog.Logger) {
	server := api.NewServer(httpAddr, core, logger)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info("solsage service started",
		"chat", fmt.Sprintf("POST http://localhost%s/api/v1/chat", httpAddr),
		"websocket", fmt.Sprintf("ws://localhost%s/ws", httpAddr),
		"health", fmt.Sprintf("http://localhost%s/health", httpAddr),
	)

	select {
	case sig := <-signalChan:
		logger.Info("received signal", "signal", sig.String())
	case err := <-errChan:
		logger.Error("server error", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("error shutting down server", "error", err)
	}

	logger.Info("shutdown completed")
}
