// Package pairing derives question/answer memory units from canonical
// conversations.
//
// The pairing rule is a positional heuristic, not dialogue understanding: a
// unit is emitted only when a user turn is immediately followed by an
// assistant turn. Multi-turn clarifications, consecutive user messages, or an
// assistant reply split across two records lose data under this rule.
package pairing

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/hivemind/internal/export"
	"github.com/MikeSquared-Agency/hivemind/internal/memory"
)

const (
	// MinContentLength is the minimum trimmed length, in characters, of both
	// the question and the answer.
	MinContentLength = 5

	DefaultProject = "generic"

	TypeChatPair    = "chat_pair"
	TypeArtifact    = "artifact"
	SourceCLIIngest = "cli_ingest"

	sourcePrefix = "chat_export_"
)

// Extract scans adjacent message pairs and emits one unit per qualifying
// (user, assistant) pair, stamped with the question's timestamp.
func Extract(conv export.Conversation, project string) []memory.Unit {
	if project == "" {
		project = DefaultProject
	}

	var units []memory.Unit
	msgs := conv.Messages
	for i := 0; i+1 < len(msgs); i++ {
		q, a := msgs[i], msgs[i+1]
		if q.Role != export.RoleUser || a.Role != export.RoleAssistant {
			continue
		}
		if !longEnough(q.Content) || !longEnough(a.Content) {
			continue
		}

		units = append(units, memory.Unit{
			Content: FormatPair(conv.Title, q.Content, a.Content),
			Metadata: map[string]string{
				memory.KeySource:            sourcePrefix + string(conv.Source),
				memory.KeyProjectContext:    project,
				memory.KeyConversationID:    conv.IDString(),
				memory.KeyConversationTitle: conv.Title,
				memory.KeyTimestamp:         q.Timestamp,
				memory.KeyType:              TypeChatPair,
			},
		})
	}
	return units
}

// ExtractAll pairs every conversation, preserving conversation order.
func ExtractAll(convs []export.Conversation, project string) []memory.Unit {
	var units []memory.Unit
	for _, c := range convs {
		units = append(units, Extract(c, project)...)
	}
	return units
}

// FormatPair renders the stored content of a chat pair.
func FormatPair(title, question, answer string) string {
	return fmt.Sprintf("Context: %s\nUser: %s\nAssistant: %s", title, question, answer)
}

func longEnough(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= MinContentLength
}

// ErrEmptyContent is returned for blank free-text memories.
var ErrEmptyContent = errors.New("no content provided")

// TextInput is a free-text memory written directly rather than derived from a
// chat export.
type TextInput struct {
	Content string   `json:"content"`
	Title   string   `json:"title"`
	Tags    []string `json:"tags,omitempty"`
	Project string   `json:"project,omitempty"`
	Type    string   `json:"type,omitempty"`
}

// TextUnit builds the unit for a free-text memory.
func TextUnit(in TextInput, now time.Time) (memory.Unit, error) {
	if export.IsBlank(in.Content) {
		return memory.Unit{}, ErrEmptyContent
	}
	if in.Project == "" {
		in.Project = DefaultProject
	}
	if in.Type == "" {
		in.Type = TypeArtifact
	}

	var tags []string
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	return memory.Unit{
		Content: in.Content,
		Metadata: map[string]string{
			memory.KeySource:            SourceCLIIngest,
			memory.KeyProjectContext:    in.Project,
			memory.KeyType:              in.Type,
			memory.KeyTags:              strings.Join(tags, ","),
			memory.KeyConversationTitle: in.Title,
			memory.KeyTimestamp:         export.FormatTime(now),
		},
	}, nil
}
