// Package api implements the JSON + SSE HTTP surface of the chat backend:
// transcript CRUD under /chats, streaming message exchange under /chat, and
// health probes.
package api

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/chat"
	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/store"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 5 * time.Minute // SSE streaming needs a long write window
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// TranscriptStore is the chat CRUD surface the handlers need.
type TranscriptStore interface {
	ListChats(ctx context.Context) ([]store.Chat, error)
	GetChat(ctx context.Context, id int64) (*store.Chat, []store.Message, error)
	CreateChat(ctx context.Context, title string) (*store.Chat, error)
	UpdateChatTitle(ctx context.Context, id int64, title string) (*store.Chat, error)
	DeleteChat(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// Streamer runs one message exchange and relays model output fragments.
type Streamer interface {
	Send(ctx context.Context, chatID int64, batch []chat.Message) (iter.Seq2[string, error], error)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       *slog.Logger
	Store        TranscriptStore // Required
	Orchestrator Streamer        // Required
}

// Server is the HTTP server for the chat backend.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{store: cfg.Store, logger: logger}
	sh := &streamHandler{store: cfg.Store, orch: cfg.Orchestrator, logger: logger}

	mux := http.NewServeMux()

	// Transcript CRUD
	mux.HandleFunc("GET /chats", ch.list)
	mux.HandleFunc("POST /chats", ch.create)
	mux.HandleFunc("GET /chats/{id}", ch.get)
	mux.HandleFunc("PUT /chats/{id}", ch.rename)
	mux.HandleFunc("DELETE /chats/{id}", ch.delete)

	// Streaming exchange
	mux.HandleFunc("POST /chat", sh.sendNew)
	mux.HandleFunc("POST /chat/{chatId}", sh.sendExisting)

	// Middleware stack (outermost first): Recovery → Logging → Routes
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux keeps health probes out of the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Store))
	topMux.Handle("/", handler)

	return &Server{mux: topMux, logger: logger}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	s.logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/chats, /chat",
		"health", "/health, /ready",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
