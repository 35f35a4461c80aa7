// Package api exposes the chat transport: a request/reply HTTP endpoint
// and a websocket channel, both feeding the same session core.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// ChatHandler is the session core boundary: one inbound message in, one
// reply out.
type ChatHandler interface {
	HandleMessage(ctx context.Context, senderID, text string) (string, error)
}

// msgGenerationFailed is the single reply sent when the core could not
// produce one (a propagated completion failure on the explanation path).
const msgGenerationFailed = "⚠️ I couldn't generate an explanation right now. Please try again."

// Server is the HTTP chat transport.
type Server struct {
	router  *mux.Router
	core    ChatHandler
	address string
	logger  *slog.Logger
	server  *http.Server
}

// NewServer creates the chat transport around an existing session core.
func NewServer(address string, core ChatHandler, logger *slog.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		core:    core,
		address: address,
		logger:  logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/chat", s.handleChat).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket).Methods("GET")
}

// handleHealth returns the health status of the service.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "solsage",
		"version":   "1.0.0",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		s.logger.Error("api error", "message", message, "error", err)
	}

	response := map[string]interface{}{
		"error":     message,
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		s.logger.Error("failed to encode error response", "error", encodeErr)
		w.Write([]byte(`{"error":"internal server error"}`))
	}
}

// recoveryMiddleware catches panics and returns proper JSON error responses.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic in handler", "method", r.Method, "path", r.URL.Path, "panic", err)
				if w.Header().Get("Content-Type") == "" {
					s.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", fmt.Errorf("panic: %v", err))
				}
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.RequestURI,
			"remote", r.RemoteAddr,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the logging wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying writer does not support hijacking")
	}
	return hj.Hijack()
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.address,
		Handler: s.router,

		ReadTimeout:       120 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       300 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
	}

	s.logger.Info("starting chat API server", "address", s.address)
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down chat API server")

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
