//go:build integration
// +build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/testutil"
)

func TestStore_CreateChat_Integration(t *testing.T) {
	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	s := New(dbc.Pool, testutil.DiscardLogger())
	ctx := context.Background()

	t.Run("empty title defaults", func(t *testing.T) {
		chat, err := s.CreateChat(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, DefaultTitle, chat.Title)
		assert.Positive(t, chat.ID)
		assert.False(t, chat.CreatedAt.IsZero())
		assert.Equal(t, chat.CreatedAt, chat.UpdatedAt)
	})

	t.Run("explicit title stored exactly", func(t *testing.T) {
		chat, err := s.CreateChat(ctx, "Test")
		require.NoError(t, err)
		assert.Equal(t, "Test", chat.Title)
	})
}

func TestStore_TimestampInvariants_Integration(t *testing.T) {
	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	s := New(dbc.Pool, testutil.DiscardLogger())
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, "Timestamps")
	require.NoError(t, err)

	// Forces a measurable gap before the update on fast machines.
	time.Sleep(10 * time.Millisecond)

	updated, err := s.UpdateChatTitle(ctx, chat.ID, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, chat.CreatedAt, updated.CreatedAt, "created_at never changes")
	assert.True(t, updated.UpdatedAt.After(chat.UpdatedAt), "updated_at must be bumped")
	assert.False(t, updated.CreatedAt.After(updated.UpdatedAt), "created_at <= updated_at")

	before := updated.UpdatedAt
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.TouchChat(ctx, chat.ID))

	after, _, err := s.GetChat(ctx, chat.ID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before), "TouchChat must bump updated_at")
}

func TestStore_Messages_Integration(t *testing.T) {
	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	s := New(dbc.Pool, testutil.DiscardLogger())
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, "Conversation")
	require.NoError(t, err)

	t.Run("empty chat lists no messages", func(t *testing.T) {
		msgs, err := s.ListMessages(ctx, chat.ID)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("append preserves creation order", func(t *testing.T) {
		for _, turn := range []struct {
			role    Role
			content string
		}{
			{RoleUser, "u1"},
			{RoleAssistant, "a1"},
			{RoleUser, "u2"},
		} {
			_, err := s.AppendMessage(ctx, chat.ID, turn.role, turn.content)
			require.NoError(t, err)
		}

		msgs, err := s.ListMessages(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "u1", msgs[0].Content)
		assert.Equal(t, "a1", msgs[1].Content)
		assert.Equal(t, "u2", msgs[2].Content)
		assert.Equal(t, RoleUser, msgs[0].Role)
		assert.Equal(t, RoleAssistant, msgs[1].Role)
	})

	t.Run("append to missing chat fails with not found", func(t *testing.T) {
		_, err := s.AppendMessage(ctx, 999999, RoleUser, "orphan")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("get chat includes history", func(t *testing.T) {
		got, msgs, err := s.GetChat(ctx, chat.ID)
		require.NoError(t, err)
		assert.Equal(t, chat.ID, got.ID)
		assert.Len(t, msgs, 3)
	})
}

func TestStore_DeleteChat_Integration(t *testing.T) {
	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	s := New(dbc.Pool, testutil.DiscardLogger())
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, "Doomed")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, chat.ID, RoleUser, "hello")
	require.NoError(t, err)

	require.NoError(t, s.DeleteChat(ctx, chat.ID))

	// Chat gone entirely: listing its messages is not-found, not empty.
	_, err = s.ListMessages(ctx, chat.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.GetChat(ctx, chat.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Cascade removed the message rows.
	var count int
	require.NoError(t, dbc.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE chat_id = $1`, chat.ID).Scan(&count))
	assert.Zero(t, count)

	// Idempotent delete.
	assert.NoError(t, s.DeleteChat(ctx, chat.ID))
}

func TestStore_ListChats_Integration(t *testing.T) {
	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	s := New(dbc.Pool, testutil.DiscardLogger())
	ctx := context.Background()

	first, err := s.CreateChat(ctx, "First")
	require.NoError(t, err)
	second, err := s.CreateChat(ctx, "Second")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.TouchChat(ctx, first.ID))

	chats, err := s.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 2)

	// Most recently active first.
	assert.Equal(t, first.ID, chats[0].ID)
	assert.Equal(t, second.ID, chats[1].ID)
}

func TestStore_UpdateChatTitle_NotFound_Integration(t *testing.T) {
	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	s := New(dbc.Pool, testutil.DiscardLogger())

	_, err := s.UpdateChatTitle(context.Background(), 424242, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
