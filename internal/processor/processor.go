// Package processor turns ingest requests arriving over NATS into ingest runs.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/hivemind/internal/export"
	"github.com/MikeSquared-Agency/hivemind/internal/hermes"
	"github.com/MikeSquared-Agency/hivemind/internal/ingest"
)

// KindInvalidRequest marks requests rejected before a run starts.
const KindInvalidRequest = "invalid_request"

const runTimeout = 10 * time.Minute

// Runner executes one ingest run. *ingest.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, req ingest.Request) (*ingest.Summary, error)
}

// Processor handles swarm.hivemind.ingest.request events.
type Processor struct {
	runner Runner
	events ingest.Publisher
	logger *slog.Logger
	now    func() time.Time

	// mu serializes runs; sink writes are not idempotent.
	mu sync.Mutex
}

func New(runner Runner, events ingest.Publisher, logger *slog.Logger) *Processor {
	return &Processor{
		runner: runner,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// HandleIngestRequest is the NATS handler for swarm.hivemind.ingest.request.
// Completion events are published by the runner; failures are published here.
func (p *Processor) HandleIngestRequest(subject string, data []byte) {
	var evt hermes.IngestRequest
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse ingest request", "subject", subject, "error", err)
		p.publishFailed("", KindInvalidRequest, fmt.Errorf("parse request: %w", err))
		return
	}
	if evt.Path == "" {
		p.publishFailed("", KindInvalidRequest, errors.New("path is required"))
		return
	}

	format, err := export.ParseFormat(evt.Format)
	if err != nil {
		p.publishFailed(evt.Path, ingest.KindUnsupportedFormat, err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	p.logger.Info("processing ingest request",
		"path", evt.Path,
		"project", evt.Project,
		"format", evt.Format,
		"dry_run", evt.DryRun,
	)

	sum, err := p.runner.Run(ctx, ingest.Request{
		Path:    evt.Path,
		Project: evt.Project,
		Format:  format,
		DryRun:  evt.DryRun,
		Force:   evt.Force,
	})
	if err != nil {
		kind := ingest.ErrorKind(err)
		p.logger.Error("ingest request failed", "path", evt.Path, "kind", kind, "error", err)
		p.publishFailed(evt.Path, kind, err)
		return
	}

	p.logger.Info("ingest request complete",
		"path", evt.Path,
		"run_id", sum.RunID,
		"written", sum.Written,
		"skipped", sum.Skipped,
	)
}

func (p *Processor) publishFailed(path, kind string, cause error) {
	if p.events == nil {
		return
	}
	evt := hermes.IngestFailed{
		Path:     path,
		Kind:     kind,
		Error:    cause.Error(),
		FailedAt: p.now().UTC(),
	}
	if err := p.events.Publish(hermes.SubjectIngestFailed, evt); err != nil {
		p.logger.Warn("failed to publish ingest failure", "path", path, "error", err)
	}
}
