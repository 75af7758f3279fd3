package processor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/MikeSquared-Agency/hivemind/internal/export"
	"github.com/MikeSquared-Agency/hivemind/internal/hermes"
	"github.com/MikeSquared-Agency/hivemind/internal/ingest"
	"github.com/MikeSquared-Agency/hivemind/internal/memory"
)

type fakeRunner struct {
	reqs []ingest.Request
	err  error
}

func (f *fakeRunner) Run(_ context.Context, req ingest.Request) (*ingest.Summary, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &ingest.Summary{RunID: "run-1", Written: 3}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	failed []hermes.IngestFailed
}

func (p *fakePublisher) Publish(subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if subject == hermes.SubjectIngestFailed {
		p.failed = append(p.failed, data.(hermes.IngestFailed))
	}
	return nil
}

func newTestProcessor(r Runner) (*Processor, *fakePublisher) {
	pub := &fakePublisher{}
	return New(r, pub, slog.New(slog.NewTextHandler(io.Discard, nil))), pub
}

func TestHandleIngestRequest_RunsIngest(t *testing.T) {
	runner := &fakeRunner{}
	p, pub := newTestProcessor(runner)

	p.HandleIngestRequest(hermes.SubjectIngestRequest, []byte(`{"path":"/data/export.json","project":"alpha","format":"chatgpt","force":true}`))

	if len(runner.reqs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runner.reqs))
	}
	req := runner.reqs[0]
	if req.Path != "/data/export.json" || req.Project != "alpha" || req.Format != export.FormatChatGPT || !req.Force {
		t.Errorf("unexpected request %+v", req)
	}
	if len(pub.failed) != 0 {
		t.Errorf("expected no failure events, got %+v", pub.failed)
	}
}

func TestHandleIngestRequest_InvalidPayloads(t *testing.T) {
	cases := []struct {
		name string
		data string
		kind string
	}{
		{"bad json", `{not json`, KindInvalidRequest},
		{"missing path", `{"project":"alpha"}`, KindInvalidRequest},
		{"unknown format", `{"path":"/x.json","format":"gemini"}`, ingest.KindUnsupportedFormat},
	}
	for _, tc := range cases {
		runner := &fakeRunner{}
		p, pub := newTestProcessor(runner)

		p.HandleIngestRequest(hermes.SubjectIngestRequest, []byte(tc.data))

		if len(runner.reqs) != 0 {
			t.Errorf("%s: runner should not be called", tc.name)
		}
		if len(pub.failed) != 1 || pub.failed[0].Kind != tc.kind {
			t.Errorf("%s: expected one %s failure, got %+v", tc.name, tc.kind, pub.failed)
		}
	}
}

func TestHandleIngestRequest_RunFailure(t *testing.T) {
	runner := &fakeRunner{err: memory.Unavailable("chroma", errors.New("connection refused"))}
	p, pub := newTestProcessor(runner)

	p.HandleIngestRequest(hermes.SubjectIngestRequest, []byte(`{"path":"/data/export.json"}`))

	if len(pub.failed) != 1 {
		t.Fatalf("expected 1 failure event, got %d", len(pub.failed))
	}
	f := pub.failed[0]
	if f.Kind != ingest.KindSinkUnavailable || f.Path != "/data/export.json" {
		t.Errorf("unexpected failure event %+v", f)
	}
	if f.FailedAt.IsZero() {
		t.Error("expected failed_at set")
	}
}

func TestHandleIngestRequest_NilPublisher(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	p := New(runner, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Must not panic without a publisher.
	p.HandleIngestRequest(hermes.SubjectIngestRequest, []byte(`{"path":"/x.json"}`))
	if len(runner.reqs) != 1 {
		t.Errorf("expected run attempted, got %d", len(runner.reqs))
	}
}
