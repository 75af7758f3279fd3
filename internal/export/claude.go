package export

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// claudeRecord is one conversation from a Claude conversations.json export.
type claudeRecord struct {
	UUID         *string         `json:"uuid"`
	Name         *string         `json:"name"`
	CreatedAt    *string         `json:"created_at"`
	ChatMessages []claudeMessage `json:"chat_messages"`
}

type claudeMessage struct {
	Sender    string          `json:"sender"`
	Text      *string         `json:"text"`
	Content   json.RawMessage `json:"content"`
	CreatedAt *string         `json:"created_at"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// adaptClaude converts a flat Claude conversation. The message list is not
// guaranteed to be ordered, so surviving messages are sorted by their
// normalized timestamp.
func adaptClaude(raw json.RawMessage, index int) (Conversation, []Diagnostic) {
	var rec claudeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Conversation{Title: untitled, Source: FormatClaude, Messages: []Message{}}, []Diagnostic{{
			Kind:    MalformedRecord,
			Index:   index,
			Message: fmt.Sprintf("undecodable record: %v", err),
		}}
	}

	conv := Conversation{
		ID:       rec.UUID,
		Title:    titleOrDefault(rec.Name),
		Source:   FormatClaude,
		Messages: []Message{},
	}
	if rec.CreatedAt != nil {
		conv.CreatedAt, _ = NormalizeISO(*rec.CreatedAt)
	}

	for _, m := range rec.ChatMessages {
		role, ok := ClassifyClaudeSender(m.Sender)
		if !ok {
			continue
		}
		if m.CreatedAt == nil {
			continue
		}
		ts, ok := NormalizeISO(*m.CreatedAt)
		if !ok {
			continue
		}
		text := claudeText(m)
		if IsBlank(text) {
			continue
		}
		conv.Messages = append(conv.Messages, Message{Role: role, Content: text, Timestamp: ts})
	}

	// Fixed-width UTC timestamps: string order is chronological order.
	slices.SortStableFunc(conv.Messages, func(a, b Message) int {
		return strings.Compare(a.Timestamp, b.Timestamp)
	})

	return conv, nil
}

// claudeText prefers the flat text field. Newer exports sometimes leave it
// empty and carry the text in content blocks instead.
func claudeText(m claudeMessage) string {
	if m.Text != nil && !IsBlank(*m.Text) {
		return *m.Text
	}
	var blocks []claudeContentBlock
	if len(m.Content) == 0 || json.Unmarshal(m.Content, &blocks) != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
