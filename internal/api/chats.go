package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/store"
)

// chatHandler serves the transcript CRUD routes.
type chatHandler struct {
	store  TranscriptStore
	logger *slog.Logger
}

// messageView renders a stored message with its content wrapped in a
// single text part, the shape streaming-aware clients consume.
type messageView struct {
	ID        int64      `json:"id"`
	Role      store.Role `json:"role"`
	Parts     []partView `json:"parts"`
	CreatedAt time.Time  `json:"createdAt"`
}

type partView struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// chatView is the detail shape for GET /chats/{id}.
type chatView struct {
	ID        int64         `json:"id"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Messages  []messageView `json:"messages"`
}

func (h *chatHandler) list(w http.ResponseWriter, r *http.Request) {
	chats, err := h.store.ListChats(r.Context())
	if err != nil {
		h.logger.Error("listing chats", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "failed to list chats")
		return
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *chatHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(w, r, "id")
	if !ok {
		return
	}

	c, msgs, err := h.store.GetChat(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Chat not found", "")
			return
		}
		h.logger.Error("loading chat", "chat_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "failed to load chat")
		return
	}

	view := chatView{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]messageView, 0, len(msgs)),
	}
	for _, m := range msgs {
		view.Messages = append(view.Messages, messageView{
			ID:        m.ID,
			Role:      m.Role,
			Parts:     []partView{{Type: "text", Text: m.Content}},
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *chatHandler) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	c, err := h.store.CreateChat(r.Context(), body.Title)
	if err != nil {
		h.logger.Error("creating chat", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "failed to create chat")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *chatHandler) rename(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		Title string `json:"title"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	c, err := h.store.UpdateChatTitle(r.Context(), id, body.Title)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Chat not found", "")
			return
		}
		h.logger.Error("renaming chat", "chat_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "failed to update chat")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *chatHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteChat(r.Context(), id); err != nil {
		h.logger.Error("deleting chat", "chat_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "failed to delete chat")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// chatID parses the numeric chat id path value, writing a 400 on failure.
func chatID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid chat id", "")
		return 0, false
	}
	return id, true
}
