package chat

import (
	"strings"

	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/store"
)

// systemPreamble opens every context string sent to the model provider.
const systemPreamble = "You are a helpful AI assistant. Answer the user's questions accurately and concisely."

// BuildContext flattens a chat's full history into the single textual
// prompt sent verbatim to the model provider: the system preamble, each
// history entry rendered as "role: content", blank lines between entries,
// and a trailing "assistant:" cue.
func BuildContext(history []store.Message) string {
	var sb strings.Builder
	sb.WriteString(systemPreamble)
	for _, m := range history {
		sb.WriteString("\n\n")
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
	}
	sb.WriteString("\n\nassistant:")
	return sb.String()
}
