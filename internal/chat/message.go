package chat

import (
	"strings"

	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/store"
)

// Part is one segment of a structured message payload.
// Only "text" parts carry conversational content.
type Part struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Message is an incoming message as submitted by a client. Clients send
// either a structured parts array or a flat content field; Text resolves
// the variance.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Parts   []Part `json:"parts,omitempty"`
}

// Text extracts the plain text of a message: the concatenated text parts
// when a structured parts array is present, otherwise the flat content
// field, otherwise the empty string.
func (m Message) Text() string {
	if len(m.Parts) > 0 {
		var sb strings.Builder
		for _, p := range m.Parts {
			if p.Type == "text" {
				sb.WriteString(p.Text)
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return m.Content
}

// LatestUserText returns the text of the most recent user-role entry in the
// batch. Prior turns resent by the client are ignored; the store already
// holds history. The second return is false when no user entry exists.
func LatestUserText(batch []Message) (string, bool) {
	for i := len(batch) - 1; i >= 0; i-- {
		if batch[i].Role == string(store.RoleUser) {
			return batch[i].Text(), true
		}
	}
	return "", false
}

// FirstUserText returns the text of the earliest user-role entry in the
// batch. Chat titles derive from the opening user message, not the one
// being answered. The second return is false when no user entry exists.
func FirstUserText(batch []Message) (string, bool) {
	for _, m := range batch {
		if m.Role == string(store.RoleUser) {
			return m.Text(), true
		}
	}
	return "", false
}

// maxTitleRunes caps titles derived from the first user message.
const maxTitleRunes = 50

// DeriveTitle builds a chat title from the first user message text:
// trimmed, truncated to maxTitleRunes runes, defaulting to the store's
// placeholder when empty.
func DeriveTitle(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return store.DefaultTitle
	}
	runes := []rune(text)
	if len(runes) > maxTitleRunes {
		return string(runes[:maxTitleRunes])
	}
	return text
}
