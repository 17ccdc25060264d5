package testutil

import (
	"bufio"
	"strings"
	"testing"
)

// ParseStream parses an event-stream response body into its data payloads.
//
// The chat streaming endpoints emit data-only events: one or more "data:"
// lines terminated by an empty line. Multiple data lines within one event
// are joined with newline per the SSE spec; comment lines starting with ":"
// are ignored.
//
//	payloads := testutil.ParseStream(t, w.Body.String())
//	require.Equal(t, "[DONE]", payloads[len(payloads)-1])
func ParseStream(t *testing.T, body string) []string {
	t.Helper()

	var payloads []string
	var dataLines []string

	scanner := bufio.NewScanner(strings.NewReader(body))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))

		case line == "":
			if len(dataLines) > 0 {
				payloads = append(payloads, strings.Join(dataLines, "\n"))
				dataLines = nil
			}

		case strings.HasPrefix(line, ":"):
			// comment, ignore

		default:
			t.Fatalf("unexpected event-stream line %d: %q", lineNum, line)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("event-stream scan error: %v", err)
	}

	if len(dataLines) > 0 {
		t.Fatalf("event-stream ended without terminating event (missing empty line): %q", dataLines)
	}

	return payloads
}
