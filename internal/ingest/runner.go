// Package ingest runs chat exports through parsing and pairing into a memory
// sink, keeping a ledger so the same export is not written twice.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/MikeSquared-Agency/hivemind/internal/export"
	"github.com/MikeSquared-Agency/hivemind/internal/hermes"
	"github.com/MikeSquared-Agency/hivemind/internal/memory"
	"github.com/MikeSquared-Agency/hivemind/internal/pairing"
)

// Publisher emits ingest events. *hermes.Client satisfies it.
type Publisher interface {
	Publish(subject string, data any) error
}

// Config holds the runner configuration.
type Config struct {
	// StatePath is the ledger file. Empty keeps the ledger in memory only.
	StatePath      string
	DefaultProject string
	// Workers bounds parallel record adaptation. Zero means GOMAXPROCS.
	Workers int
}

// Request describes one ingest run. Data takes precedence over Path; Path is
// then only used as a label.
type Request struct {
	Path    string
	Data    []byte
	Project string
	Format  export.Format
	DryRun  bool
	// Force re-ingests a document the ledger already records.
	Force bool
}

// Summary reports what a run did.
type Summary struct {
	RunID         string              `json:"run_id"`
	Path          string              `json:"path,omitempty"`
	Digest        string              `json:"digest"`
	Format        export.Format       `json:"format"`
	Project       string              `json:"project"`
	Conversations int                 `json:"conversations"`
	Messages      int                 `json:"messages"`
	Units         int                 `json:"units"`
	Written       int                 `json:"written"`
	DryRun        bool                `json:"dry_run"`
	Skipped       bool                `json:"skipped"`
	Diagnostics   []export.Diagnostic `json:"diagnostics,omitempty"`
	Errors        []string            `json:"errors,omitempty"`
}

// Runner orchestrates ingest runs against one sink.
type Runner struct {
	cfg    Config
	sink   memory.Sink
	events Publisher
	logger *slog.Logger
	now    func() time.Time

	// mu serializes runs; the ledger file is read-modify-write.
	mu sync.Mutex
}

// NewRunner creates a runner. events may be nil.
func NewRunner(cfg Config, sink memory.Sink, events Publisher, logger *slog.Logger) *Runner {
	if cfg.DefaultProject == "" {
		cfg.DefaultProject = pairing.DefaultProject
	}
	return &Runner{
		cfg:    cfg,
		sink:   sink,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Run ingests one export document.
func (r *Runner) Run(ctx context.Context, req Request) (*Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := req.Data
	if data == nil {
		if req.Path == "" {
			return nil, errors.New("no export path or data provided")
		}
		b, err := os.ReadFile(expandHome(req.Path))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", req.Path, err)
		}
		data = b
	}

	project := req.Project
	if project == "" {
		project = r.cfg.DefaultProject
	}

	sum := &Summary{
		RunID:   ulid.Make().String(),
		Path:    req.Path,
		Digest:  digest(data),
		Project: project,
		DryRun:  req.DryRun,
	}
	log := r.logger.With("run_id", sum.RunID, "path", req.Path)

	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	key := ledgerKey(sum.Digest, project)
	if !req.Force && !req.DryRun && state.IsIngested(key) {
		prev := state.Ingested[key]
		sum.Skipped = true
		sum.Format = export.Format(prev.Format)
		log.Info("export already ingested, skipping", "digest", sum.Digest, "project", project, "previous_run", prev.RunID)
		r.publishCompleted(sum)
		return sum, nil
	}

	res, err := export.Parse(data, export.ParseOptions{Format: req.Format, Workers: r.cfg.Workers})
	if err != nil {
		return nil, err
	}
	for _, d := range res.Diagnostics {
		log.Warn("malformed export record", "index", d.Index, "conversation_id", d.ConversationID, "reason", d.Message)
	}

	units := pairing.ExtractAll(res.Conversations, project)
	sum.Format = res.Format
	sum.Conversations = len(res.Conversations)
	sum.Messages = res.MessageCount()
	sum.Units = len(units)
	sum.Diagnostics = res.Diagnostics

	log.Info("export parsed",
		"format", res.Format,
		"detected", res.Detected,
		"conversations", sum.Conversations,
		"messages", sum.Messages,
		"units", sum.Units,
		"diagnostics", len(res.Diagnostics),
	)

	if req.DryRun {
		r.publishCompleted(sum)
		return sum, nil
	}

	if err := r.ping(ctx); err != nil {
		return sum, err
	}

	for i, u := range units {
		if err := ctx.Err(); err != nil {
			r.saveState(state, log)
			return sum, err
		}
		if _, err := memory.Write(ctx, r.sink, u); err != nil {
			if errors.Is(err, memory.ErrSinkUnavailable) {
				state.AddError(fmt.Sprintf("%s: unit %d: %v", sum.RunID, i+1, err))
				r.saveState(state, log)
				return sum, fmt.Errorf("write unit %d of %d: %w", i+1, len(units), err)
			}
			log.Error("write failed", "unit", i+1, "error", err)
			msg := fmt.Sprintf("unit %d: %v", i+1, err)
			sum.Errors = append(sum.Errors, msg)
			state.AddError(sum.RunID + ": " + msg)
			continue
		}
		sum.Written++
	}

	// Exports with failed units stay out of the ledger so a plain re-run
	// retries them.
	if len(sum.Errors) > 0 {
		r.saveState(state, log)
		log.Warn("ingest finished with errors, export not recorded", "written", sum.Written, "errors", len(sum.Errors))
		r.publishCompleted(sum)
		return sum, nil
	}

	state.MarkIngested(key, Ingested{
		Path:       req.Path,
		Format:     string(res.Format),
		Project:    project,
		Units:      sum.Units,
		Written:    sum.Written,
		RunID:      sum.RunID,
		IngestedAt: r.now().UTC(),
	})
	r.saveState(state, log)

	log.Info("ingest complete", "written", sum.Written)
	r.publishCompleted(sum)
	return sum, nil
}

// RunText writes a single free-text memory and returns its id.
func (r *Runner) RunText(ctx context.Context, in pairing.TextInput) (string, error) {
	if in.Project == "" {
		in.Project = r.cfg.DefaultProject
	}
	u, err := pairing.TextUnit(in, r.now())
	if err != nil {
		return "", err
	}
	if err := r.ping(ctx); err != nil {
		return "", err
	}
	id, err := memory.Write(ctx, r.sink, u)
	if err != nil {
		return "", fmt.Errorf("write memory: %w", err)
	}
	r.logger.Info("memory added", "id", id, "project", in.Project, "type", u.Metadata[memory.KeyType])
	return id, nil
}

func (r *Runner) ping(ctx context.Context) error {
	if err := r.sink.Ping(ctx); err != nil {
		if !errors.Is(err, memory.ErrSinkUnavailable) {
			err = memory.Unavailable("sink", err)
		}
		return err
	}
	return nil
}

func (r *Runner) saveState(state *State, log *slog.Logger) {
	if err := state.Save(); err != nil {
		log.Warn("failed to save ingest state", "error", err)
	}
}

func (r *Runner) publishCompleted(sum *Summary) {
	if r.events == nil {
		return
	}
	evt := hermes.IngestCompleted{
		RunID:         sum.RunID,
		Path:          sum.Path,
		Format:        string(sum.Format),
		Project:       sum.Project,
		Conversations: sum.Conversations,
		Units:         sum.Units,
		Written:       sum.Written,
		Diagnostics:   len(sum.Diagnostics),
		DryRun:        sum.DryRun,
		Skipped:       sum.Skipped,
		CompletedAt:   r.now().UTC(),
	}
	if err := r.events.Publish(hermes.SubjectIngestCompleted, evt); err != nil {
		r.logger.Warn("failed to publish ingest event", "run_id", sum.RunID, "error", err)
	}
}

// ledgerKey scopes a ledger entry to the project the export was written
// under, so the same file can be ingested into several projects.
func ledgerKey(digest, project string) string {
	return digest + ":" + project
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Error kinds reported on failure events and API responses.
const (
	KindDecode            = "decode"
	KindUnsupportedFormat = "unsupported_format"
	KindSinkUnavailable   = "sink_unavailable"
	KindInternal          = "internal"
)

// ErrorKind names the class of an ingest error.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, export.ErrDecode):
		return KindDecode
	case errors.Is(err, export.ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, memory.ErrSinkUnavailable):
		return KindSinkUnavailable
	default:
		return KindInternal
	}
}
