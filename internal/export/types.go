// Package export turns vendor chat-export archives into canonical conversations.
//
// Each vendor encodes conversation structure differently. ChatGPT exports a
// parent-pointer tree per conversation where regenerated or edited replies
// leave abandoned sibling branches behind; Claude exports a flat list of
// messages. Adapters reduce both to a single linear, chronological path.
package export

import (
	"fmt"
	"strings"
)

// Format tags which adapter understands a document.
type Format string

const (
	FormatChatGPT Format = "chatgpt"
	FormatClaude  Format = "claude"
	FormatUnknown Format = "unknown"
)

// ParseFormat resolves an explicit format override. An empty string means
// "detect", and is returned as FormatUnknown with no error.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return FormatUnknown, nil
	case FormatChatGPT:
		return FormatChatGPT, nil
	case FormatClaude:
		return FormatClaude, nil
	}
	return FormatUnknown, &UnsupportedFormatError{Format: Format(s)}
}

// Role is the speaker of a canonical message. Only user and assistant turns
// survive adaptation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn on the active path of a conversation.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Conversation is the format-independent representation every adapter
// converges to. Messages are already in ascending chronological order.
type Conversation struct {
	ID        *string   `json:"id"`
	Title     string    `json:"title"`
	CreatedAt string    `json:"created_at"`
	Source    Format    `json:"source"`
	Messages  []Message `json:"messages"`
}

// IDString returns the conversation id, or "" when the export had none.
func (c Conversation) IDString() string {
	if c.ID == nil {
		return ""
	}
	return *c.ID
}

const untitled = "Untitled"

func titleOrDefault(title *string) string {
	if title == nil {
		return untitled
	}
	return *title
}

// DiagnosticKind classifies a non-fatal per-record anomaly.
type DiagnosticKind string

const (
	// MalformedRecord marks a record that lacks a traversal anchor or could
	// not be decoded. The record still yields a conversation, with no messages.
	MalformedRecord DiagnosticKind = "malformed_record"
)

// Diagnostic is surfaced to the caller while processing continues.
type Diagnostic struct {
	Kind           DiagnosticKind `json:"kind"`
	Index          int            `json:"index"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Message        string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.ConversationID != "" {
		return fmt.Sprintf("%s: record %d (%s): %s", d.Kind, d.Index, d.ConversationID, d.Message)
	}
	return fmt.Sprintf("%s: record %d: %s", d.Kind, d.Index, d.Message)
}
