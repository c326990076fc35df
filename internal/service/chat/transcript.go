package chat

import "github.com/recallion/recallion/internal/core"

// interruptedNotice terminates an assistant message cut off mid-stream, so the
// reader sees an explicit failure instead of a silently truncated answer.
const interruptedNotice = "\n\n[Sorry — the response was interrupted by a connection error.]"

// Transcript is the caller-held conversation state a stream writes into. The
// currently open assistant message is extended in place delta by delta; any
// other role closes it.
type Transcript struct {
	messages []core.ChatMessage
	open     bool
}

func NewTranscript(history []core.ChatMessage) *Transcript {
	t := &Transcript{messages: append([]core.ChatMessage(nil), history...)}
	if n := len(t.messages); n > 0 && t.messages[n-1].Role == core.RoleAssistant {
		t.open = true
	}
	return t
}

// Append adds one delta: the open assistant message grows in place, otherwise
// a new assistant message opens.
func (t *Transcript) Append(delta string) {
	if t.open {
		t.messages[len(t.messages)-1].Content += delta
		return
	}
	t.messages = append(t.messages, core.ChatMessage{Role: core.RoleAssistant, Content: delta})
	t.open = true
}

// Interrupt marks the open assistant message as cut off. Without an open
// message the notice becomes the whole reply.
func (t *Transcript) Interrupt() {
	t.Append(interruptedNotice)
	t.open = false
}

// Close seals the open assistant message; subsequent deltas would start a new
// one. A completed stream is finite and cannot be resumed.
func (t *Transcript) Close() {
	t.open = false
}

// Assistant returns the text of the most recent assistant message.
func (t *Transcript) Assistant() string {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == core.RoleAssistant {
			return t.messages[i].Content
		}
	}
	return ""
}

func (t *Transcript) Messages() []core.ChatMessage {
	return t.messages
}
