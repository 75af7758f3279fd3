package export

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// adapterFunc converts one raw export record. It never fails: anomalies are
// filtered silently or reported as diagnostics.
type adapterFunc func(raw json.RawMessage, index int) (Conversation, []Diagnostic)

var adapters = map[Format]adapterFunc{
	FormatChatGPT: adaptChatGPT,
	FormatClaude:  adaptClaude,
}

// ParseOptions controls a parse call.
type ParseOptions struct {
	// Format overrides detection when set to anything other than "" or
	// FormatUnknown.
	Format Format
	// Workers bounds how many records are adapted concurrently. Zero means
	// GOMAXPROCS.
	Workers int
}

// ParseResult is the outcome of parsing one export document.
type ParseResult struct {
	Format        Format         `json:"format"`
	Detected      bool           `json:"detected"`
	Conversations []Conversation `json:"conversations"`
	Diagnostics   []Diagnostic   `json:"diagnostics,omitempty"`
}

// MessageCount is the total number of canonical messages across conversations.
func (r *ParseResult) MessageCount() int {
	n := 0
	for _, c := range r.Conversations {
		n += len(c.Messages)
	}
	return n
}

// ParseFile reads and parses an export file.
func ParseFile(path string, opts ParseOptions) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data, opts)
}

// Parse decodes and adapts an export document.
func Parse(data []byte, opts ParseOptions) (*ParseResult, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return ParseDocument(doc, opts)
}

// ParseDocument adapts an already-decoded document. Records are independent
// and are adapted in parallel; output order matches input order.
func ParseDocument(doc []json.RawMessage, opts ParseOptions) (*ParseResult, error) {
	format := opts.Format
	detected := false
	if format == "" || format == FormatUnknown {
		format = Detect(doc)
		detected = true
	}

	adapt, ok := adapters[format]
	if !ok {
		return nil, &UnsupportedFormatError{Format: format}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	convs := make([]Conversation, len(doc))
	diags := make([][]Diagnostic, len(doc))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, raw := range doc {
		g.Go(func() error {
			convs[i], diags[i] = adapt(raw, i)
			return nil
		})
	}
	_ = g.Wait()

	res := &ParseResult{
		Format:        format,
		Detected:      detected,
		Conversations: convs,
	}
	for _, d := range diags {
		res.Diagnostics = append(res.Diagnostics, d...)
	}
	return res, nil
}
