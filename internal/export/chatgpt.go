package export

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// chatgptRecord is one conversation from a ChatGPT conversations.json export.
type chatgptRecord struct {
	ID          *string                `json:"id"`
	Title       *string                `json:"title"`
	CreateTime  *float64               `json:"create_time"`
	Mapping     map[string]chatgptNode `json:"mapping"`
	CurrentNode *string                `json:"current_node"`
}

// chatgptNode is an arena entry. Parent and child links are plain ids.
type chatgptNode struct {
	ID       string          `json:"id"`
	Message  *chatgptMessage `json:"message"`
	Parent   *string         `json:"parent"`
	Children []string        `json:"children"`
}

type chatgptMessage struct {
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	Content    chatgptContent `json:"content"`
	CreateTime *float64       `json:"create_time"`
}

type chatgptContent struct {
	ContentType string            `json:"content_type"`
	Parts       []json.RawMessage `json:"parts"`
}

// adaptChatGPT reconstructs the active branch of a conversation tree by
// walking parent links back from current_node. Sibling branches left behind by
// regenerations or edits are never visited.
func adaptChatGPT(raw json.RawMessage, index int) (Conversation, []Diagnostic) {
	var rec chatgptRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Conversation{Title: untitled, Source: FormatChatGPT, Messages: []Message{}}, []Diagnostic{{
			Kind:    MalformedRecord,
			Index:   index,
			Message: fmt.Sprintf("undecodable record: %v", err),
		}}
	}

	conv := Conversation{
		ID:        rec.ID,
		Title:     titleOrDefault(rec.Title),
		CreatedAt: epochPtrToISO(rec.CreateTime),
		Source:    FormatChatGPT,
		Messages:  []Message{},
	}

	if rec.CurrentNode == nil || *rec.CurrentNode == "" {
		return conv, []Diagnostic{{
			Kind:           MalformedRecord,
			Index:          index,
			ConversationID: conv.IDString(),
			Message:        "no current_node, conversation left empty",
		}}
	}

	var diags []Diagnostic
	var collected []Message
	seen := make(map[string]bool)

	// Tip to root.
	for id := *rec.CurrentNode; id != ""; {
		if seen[id] {
			diags = append(diags, Diagnostic{
				Kind:           MalformedRecord,
				Index:          index,
				ConversationID: conv.IDString(),
				Message:        fmt.Sprintf("parent cycle at node %s, walk stopped", id),
			})
			break
		}
		seen[id] = true

		node, ok := rec.Mapping[id]
		if !ok {
			break
		}
		if msg, ok := chatgptNodeMessage(node); ok {
			collected = append(collected, msg)
		}
		if node.Parent == nil {
			break
		}
		id = *node.Parent
	}

	slices.Reverse(collected)
	if collected != nil {
		conv.Messages = collected
	}
	return conv, diags
}

// chatgptNodeMessage applies the per-node filters: user/assistant authors,
// text content only, non-blank text, and a creation timestamp.
func chatgptNodeMessage(node chatgptNode) (Message, bool) {
	m := node.Message
	if m == nil {
		return Message{}, false
	}
	role, ok := ClassifyAuthorRole(m.Author.Role)
	if !ok {
		return Message{}, false
	}
	if m.Content.ContentType != "text" {
		return Message{}, false
	}

	text := joinTextParts(m.Content.Parts)
	if IsBlank(text) {
		return Message{}, false
	}

	ts := epochPtrToISO(m.CreateTime)
	if ts == "" {
		return Message{}, false
	}

	return Message{Role: role, Content: text, Timestamp: ts}, true
}

// joinTextParts concatenates string parts. Non-string parts (image pointers
// and similar objects) carry no text and are skipped.
func joinTextParts(parts []json.RawMessage) string {
	var sb strings.Builder
	for _, p := range parts {
		var s string
		if err := json.Unmarshal(p, &s); err != nil {
			continue
		}
		sb.WriteString(s)
	}
	return sb.String()
}

func epochPtrToISO(ts *float64) string {
	if ts == nil {
		return ""
	}
	return EpochToISO(*ts)
}
