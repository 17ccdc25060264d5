// Package store implements the transcript store: durable, ordered
// conversation history in PostgreSQL.
//
// Two tables back the store: chats (title + timestamps) and messages
// (role + content, cascade-deleted with their chat). Messages are
// append-only; the only mutation the store offers is whole-chat delete.
//
// Store is safe for concurrent use by multiple goroutines; the pgx pool
// is shared process-wide and no application-level locking is added.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the referenced chat does not exist.
var ErrNotFound = errors.New("chat not found")

// DefaultTitle is assigned to chats created without a title.
const DefaultTitle = "New Chat"

// Role identifies the author of a message.
type Role string

// Valid message roles. No other values pass the database check constraint.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Chat is a persisted conversation container.
type Chat struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is one turn in a chat, immutable once written.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chatId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store manages chat and message persistence with a PostgreSQL backend.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a new Store instance. A nil logger falls back to slog.Default().
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// ListChats returns all chats ordered by updated timestamp descending,
// most recently active first.
func (s *Store) ListChats(ctx context.Context) ([]Chat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, created_at, updated_at FROM chats ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	chats := make([]Chat, 0)
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chats: %w", err)
	}

	s.logger.Debug("listed chats", "count", len(chats))
	return chats, nil
}

// GetChat retrieves a chat and its full ordered message history.
// Returns ErrNotFound if no chat with that id exists.
func (s *Store) GetChat(ctx context.Context, id int64) (*Chat, []Message, error) {
	var c Chat
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, created_at, updated_at FROM chats WHERE id = $1`, id).
		Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get chat %d: %w", id, err)
	}

	messages, err := s.listMessages(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return &c, messages, nil
}

// CreateChat inserts a new chat. An empty title defaults to DefaultTitle.
// The returned record carries the generated id and both timestamps
// (created == updated at creation).
func (s *Store) CreateChat(ctx context.Context, title string) (*Chat, error) {
	if title == "" {
		title = DefaultTitle
	}

	var c Chat
	err := s.pool.QueryRow(ctx,
		`INSERT INTO chats (title) VALUES ($1) RETURNING id, title, created_at, updated_at`, title).
		Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	s.logger.Debug("created chat", "id", c.ID, "title", c.Title)
	return &c, nil
}

// UpdateChatTitle sets the title and bumps the updated timestamp.
// Returns ErrNotFound if no chat with that id exists.
func (s *Store) UpdateChatTitle(ctx context.Context, id int64, title string) (*Chat, error) {
	var c Chat
	err := s.pool.QueryRow(ctx,
		`UPDATE chats SET title = $2, updated_at = now() WHERE id = $1
		 RETURNING id, title, created_at, updated_at`, id, title).
		Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update chat %d: %w", id, err)
	}

	s.logger.Debug("updated chat title", "id", id)
	return &c, nil
}

// DeleteChat removes the chat and, via the cascade constraint, all its
// messages. Idempotent: deleting a non-existent id is not an error.
func (s *Store) DeleteChat(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete chat %d: %w", id, err)
	}

	s.logger.Debug("deleted chat", "id", id)
	return nil
}

// AppendMessage inserts one message with the current timestamp and returns
// the stored row. Returns ErrNotFound if the chat does not exist (surfaced
// from the foreign key constraint).
func (s *Store) AppendMessage(ctx context.Context, chatID int64, role Role, content string) (*Message, error) {
	m := Message{ChatID: chatID, Role: role, Content: content}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO messages (chat_id, role, content) VALUES ($1, $2, $3)
		 RETURNING id, created_at`, chatID, role, content).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to append message to chat %d: %w", chatID, err)
	}

	s.logger.Debug("appended message", "chat_id", chatID, "role", role, "message_id", m.ID)
	return &m, nil
}

// ListMessages returns the ordered message history for a chat, ascending by
// creation order. An existing chat with no messages yields an empty slice;
// a missing chat yields ErrNotFound.
func (s *Store) ListMessages(ctx context.Context, chatID int64) ([]Message, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1)`, chatID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check chat %d: %w", chatID, err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	return s.listMessages(ctx, chatID)
}

// listMessages reads message rows without checking chat existence.
// The serial id breaks ties between rows inserted in the same instant.
func (s *Store) listMessages(ctx context.Context, chatID int64) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, chat_id, role, content, created_at FROM messages
		 WHERE chat_id = $1 ORDER BY created_at ASC, id ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for chat %d: %w", chatID, err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return messages, nil
}

// TouchChat sets the chat's updated timestamp to the current time,
// independent of the title.
func (s *Store) TouchChat(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `UPDATE chats SET updated_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to touch chat %d: %w", id, err)
	}
	return nil
}

// Ping verifies database connectivity. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
