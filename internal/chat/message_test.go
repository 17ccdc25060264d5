package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/store"
)

func TestMessageText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "structured parts preferred",
			msg: Message{
				Content: "flat ignored",
				Parts:   []Part{{Type: "text", Text: "from "}, {Type: "text", Text: "parts"}},
			},
			want: "from parts",
		},
		{
			name: "non-text parts skipped",
			msg: Message{
				Parts: []Part{{Type: "image", Text: "nope"}, {Type: "text", Text: "kept"}},
			},
			want: "kept",
		},
		{
			name: "parts with no text fall back to content",
			msg: Message{
				Content: "fallback",
				Parts:   []Part{{Type: "image", Text: "nope"}},
			},
			want: "fallback",
		},
		{
			name: "flat content",
			msg:  Message{Content: "hello"},
			want: "hello",
		},
		{
			name: "empty message",
			msg:  Message{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.msg.Text())
		})
	}
}

func TestLatestUserText(t *testing.T) {
	t.Parallel()

	t.Run("most recent user entry wins", func(t *testing.T) {
		t.Parallel()

		batch := []Message{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "reply"},
			{Role: "user", Content: "second"},
		}
		text, ok := LatestUserText(batch)
		assert.True(t, ok)
		assert.Equal(t, "second", text)
	})

	t.Run("no user entry", func(t *testing.T) {
		t.Parallel()

		batch := []Message{{Role: "assistant", Content: "only me"}}
		_, ok := LatestUserText(batch)
		assert.False(t, ok)
	})

	t.Run("empty batch", func(t *testing.T) {
		t.Parallel()

		_, ok := LatestUserText(nil)
		assert.False(t, ok)
	})
}

func TestFirstUserText(t *testing.T) {
	t.Parallel()

	t.Run("earliest user entry wins", func(t *testing.T) {
		t.Parallel()

		batch := []Message{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "reply"},
			{Role: "user", Content: "second"},
		}
		text, ok := FirstUserText(batch)
		assert.True(t, ok)
		assert.Equal(t, "first", text)
	})

	t.Run("leading assistant entries skipped", func(t *testing.T) {
		t.Parallel()

		batch := []Message{
			{Role: "assistant", Content: "greeting"},
			{Role: "user", Content: "question"},
		}
		text, ok := FirstUserText(batch)
		assert.True(t, ok)
		assert.Equal(t, "question", text)
	})

	t.Run("no user entry", func(t *testing.T) {
		t.Parallel()

		_, ok := FirstUserText([]Message{{Role: "assistant", Content: "only me"}})
		assert.False(t, ok)
	})
}

func TestDeriveTitle(t *testing.T) {
	t.Parallel()

	t.Run("short text kept", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Hello there, how are you doing today",
			DeriveTitle("Hello there, how are you doing today"))
	})

	t.Run("long text truncated to 50 runes", func(t *testing.T) {
		t.Parallel()

		long := strings.Repeat("x", 60)
		title := DeriveTitle(long)
		assert.Len(t, []rune(title), 50)
		assert.Equal(t, strings.Repeat("x", 50), title)
	})

	t.Run("multibyte text truncated on rune boundary", func(t *testing.T) {
		t.Parallel()

		long := strings.Repeat("héllo ", 12) // 72 runes
		title := DeriveTitle(long)
		assert.Len(t, []rune(title), 50)
	})

	t.Run("empty defaults", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, store.DefaultTitle, DeriveTitle(""))
		assert.Equal(t, store.DefaultTitle, DeriveTitle("   "))
	})
}
