package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/chat"
	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/store"
)

// streamHandler serves the streaming exchange routes.
type streamHandler struct {
	store  TranscriptStore
	orch   Streamer
	logger *slog.Logger
}

// sendRequest is the body of both streaming routes.
type sendRequest struct {
	Messages []chat.Message `json:"messages"`
}

// deltaEvent is one streamed text fragment.
type deltaEvent struct {
	Type      string `json:"type"`
	TextDelta string `json:"textDelta"`
}

// errorEvent is the in-stream error frame sent once output has begun.
type errorEvent struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Details string `json:"details"`
}

// sendNew handles POST /chat: creates a chat titled from the user message,
// announces its id in the X-Chat-Id header, and streams the exchange.
func (h *streamHandler) sendNew(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSend(w, r)
	if !ok {
		return
	}

	// The title comes from the opening user message; the orchestrator
	// answers the most recent one.
	titleText, ok := chat.FirstUserText(req.Messages)
	if !ok {
		writeError(w, http.StatusBadRequest, "No user message found", "")
		return
	}

	c, err := h.store.CreateChat(r.Context(), chat.DeriveTitle(titleText))
	if err != nil {
		h.logger.Error("creating chat for exchange", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "failed to create chat")
		return
	}

	w.Header().Set("X-Chat-Id", strconv.FormatInt(c.ID, 10))
	h.stream(w, r, c.ID, req.Messages)
}

// sendExisting handles POST /chat/{chatId}: streams an exchange against an
// existing chat, 404 when the chat id is unknown.
func (h *streamHandler) sendExisting(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(w, r, "chatId")
	if !ok {
		return
	}
	req, ok := h.decodeSend(w, r)
	if !ok {
		return
	}
	h.stream(w, r, id, req.Messages)
}

func (h *streamHandler) decodeSend(w http.ResponseWriter, r *http.Request) (sendRequest, bool) {
	var req sendRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1024*1024)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return req, false
	}
	return req, true
}

// stream runs the exchange and relays fragments as server-sent events.
//
// Failures before the first byte reaches the client become plain JSON error
// responses; once streaming has begun they become a terminal in-stream error
// frame instead, so the connection never closes silently mid-exchange.
func (h *streamHandler) stream(w http.ResponseWriter, r *http.Request, chatID int64, batch []chat.Message) {
	ctx := r.Context()

	seq, err := h.orch.Send(ctx, chatID, batch)
	if err != nil {
		h.writePreStreamError(w, chatID, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	wrote := false
	for fragment, err := range seq {
		if err != nil {
			if !wrote {
				// Nothing sent yet, the JSON surface is still available.
				w.Header().Del("Content-Type")
				w.Header().Del("Cache-Control")
				w.Header().Del("Connection")
				w.Header().Del("X-Accel-Buffering")
				h.writePreStreamError(w, chatID, err)
				return
			}
			h.logger.Error("stream failed", "chat_id", chatID, "error", err)
			h.writeEvent(w, flusher, errorEvent{Type: "error", Error: "AI Service Error", Details: err.Error()})
			return
		}

		select {
		case <-ctx.Done():
			h.logger.Info("client disconnected", "chat_id", chatID)
			return
		default:
		}

		h.writeEvent(w, flusher, deltaEvent{Type: "text-delta", TextDelta: fragment})
		wrote = true
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
	h.logger.Debug("stream completed", "chat_id", chatID)
}

// writeEvent writes one data-only SSE frame and flushes it immediately.
func (h *streamHandler) writeEvent(w http.ResponseWriter, flusher http.Flusher, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("encoding stream event", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// writePreStreamError maps an exchange failure to an HTTP error response.
func (h *streamHandler) writePreStreamError(w http.ResponseWriter, chatID int64, err error) {
	switch {
	case errors.Is(err, chat.ErrNoUserMessage):
		writeError(w, http.StatusBadRequest, "No user message found", "")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Chat not found", "")
	default:
		h.logger.Error("exchange failed before streaming", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "AI Service Error", err.Error())
	}
}
