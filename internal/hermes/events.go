package hermes

import "time"

// Subjects for ingest events.
const (
	SubjectIngestRequest   = "swarm.hivemind.ingest.request"
	SubjectIngestCompleted = "swarm.hivemind.ingest.completed"
	SubjectIngestFailed    = "swarm.hivemind.ingest.failed"
	SubjectAgentRegistered = "swarm.agent.hivemind.registered"

	// QueueIngest is the queue group ingest requests are shared over.
	QueueIngest = "hivemind-ingest"
)

// IngestRequest asks a hivemind instance to ingest an export file it can
// read from its own filesystem.
type IngestRequest struct {
	Path    string `json:"path"`
	Project string `json:"project,omitempty"`
	Format  string `json:"format,omitempty"`
	DryRun  bool   `json:"dry_run,omitempty"`
	Force   bool   `json:"force,omitempty"`
}

// IngestCompleted is published after every successful ingest run.
type IngestCompleted struct {
	RunID         string    `json:"run_id"`
	Path          string    `json:"path,omitempty"`
	Format        string    `json:"format"`
	Project       string    `json:"project"`
	Conversations int       `json:"conversations"`
	Units         int       `json:"units"`
	Written       int       `json:"written"`
	Diagnostics   int       `json:"diagnostics"`
	DryRun        bool      `json:"dry_run"`
	Skipped       bool      `json:"skipped"`
	CompletedAt   time.Time `json:"completed_at"`
}

// IngestFailed is published when an ingest request cannot be completed.
// Kind is one of decode, unsupported_format, sink_unavailable, invalid_request
// or internal.
type IngestFailed struct {
	Path     string    `json:"path,omitempty"`
	Kind     string    `json:"kind"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
