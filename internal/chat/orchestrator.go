// Package chat implements the conversation orchestrator: the control flow
// around a single in-flight streaming generation.
//
// For each send, the orchestrator persists the incoming user message,
// rebuilds the full conversation context from the store, drives the model
// gateway, relays fragments to the caller as a pull sequence, and records
// the final transcript once the stream ends. The store — not the incoming
// request — is the single source of truth for what the model saw, which is
// why the user message is persisted before the context is rebuilt.
//
// No cross-request mutual exclusion is provided per chat: two concurrent
// sends against the same chat may interleave their read/append steps.
// Callers must serialize sends to a chat if strict ordering is required.
package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/store"
)

// ErrNoUserMessage indicates the incoming batch held no user-role entry.
var ErrNoUserMessage = errors.New("no user message in request")

// TranscriptStore is the subset of store operations the orchestrator needs.
// Interfaces are defined by the consumer, not the provider.
type TranscriptStore interface {
	AppendMessage(ctx context.Context, chatID int64, role store.Role, content string) (*store.Message, error)
	ListMessages(ctx context.Context, chatID int64) ([]store.Message, error)
	TouchChat(ctx context.Context, chatID int64) error
}

// Generator produces model output for an assembled prompt as a lazy,
// consume-once sequence of text fragments.
type Generator interface {
	Stream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// Orchestrator coordinates one streaming exchange per Send invocation.
type Orchestrator struct {
	store  TranscriptStore
	gen    Generator
	logger *slog.Logger
}

// New creates an orchestrator. A nil logger falls back to slog.Default().
func New(ts TranscriptStore, gen Generator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: ts, gen: gen, logger: logger}
}

// Send runs one message exchange against an existing chat.
//
// The synchronous phase extracts the most recent user entry from the batch,
// persists it, and rebuilds the conversation context; any failure here is
// returned directly with no fragments produced (ErrNoUserMessage before any
// side effect, store.ErrNotFound for an unknown chat). The returned
// sequence then relays gateway fragments in generation order, one at a
// time, and finishes the exchange after the last fragment: the accumulated
// reply is persisted as an assistant message (when non-empty) and the
// chat's updated timestamp is bumped. A gateway or store failure during
// relay is yielded once as the sequence's final element; accumulated
// partial text is dropped in that case.
func (o *Orchestrator) Send(ctx context.Context, chatID int64, batch []Message) (iter.Seq2[string, error], error) {
	userText, ok := LatestUserText(batch)
	if !ok {
		return nil, ErrNoUserMessage
	}

	if _, err := o.store.AppendMessage(ctx, chatID, store.RoleUser, userText); err != nil {
		return nil, fmt.Errorf("persisting user message: %w", err)
	}

	// Re-read so the context includes the message just written.
	history, err := o.store.ListMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	prompt := BuildContext(history)
	o.logger.Debug("starting generation", "chat_id", chatID, "history_len", len(history))

	return o.relay(ctx, chatID, prompt), nil
}

// relay drives the gateway and finalizes the exchange when it completes.
func (o *Orchestrator) relay(ctx context.Context, chatID int64, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var reply strings.Builder

		for fragment, err := range o.gen.Stream(ctx, prompt) {
			if err != nil {
				o.logger.Error("generation failed", "chat_id", chatID, "error", err)
				yield("", err)
				return
			}
			reply.WriteString(fragment)
			if !yield(fragment, nil) {
				// Consumer stopped early (client disconnect). Abandon the
				// exchange; the user message stays, the partial reply does not.
				o.logger.Debug("stream consumer stopped early", "chat_id", chatID)
				return
			}
		}

		if err := o.finish(ctx, chatID, reply.String()); err != nil {
			o.logger.Error("finalizing exchange failed", "chat_id", chatID, "error", err)
			yield("", err)
		}
	}
}

// finish persists the assistant reply and bumps the chat timestamp.
// The timestamp is bumped even when the reply is empty: the exchange
// happened.
func (o *Orchestrator) finish(ctx context.Context, chatID int64, reply string) error {
	if reply != "" {
		if _, err := o.store.AppendMessage(ctx, chatID, store.RoleAssistant, reply); err != nil {
			return fmt.Errorf("persisting assistant message: %w", err)
		}
	}
	if err := o.store.TouchChat(ctx, chatID); err != nil {
		return fmt.Errorf("updating chat timestamp: %w", err)
	}
	o.logger.Debug("exchange completed", "chat_id", chatID, "reply_len", len(reply))
	return nil
}
