// Package worker defines the job envelope and the closed dispatch table
// of job kinds.
//
// Handlers are injected at construction and looked up by id; there is no
// global mutable registration. The envelope and result shapes match what
// the surrounding job infrastructure exchanges with the pipeline.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/intake/internal/project"
)

// Request is the job envelope handed to Dispatch.
type Request struct {
	WorkerID string          `json:"workerId"`
	Input    json.RawMessage `json:"input"`
	JobID    string          `json:"jobId,omitempty"`
	Source   string          `json:"source"`
}

// Result is the synchronous outcome envelope.
type Result struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	Data       any       `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
	JobID      string    `json:"jobId"`
	WorkerID   string    `json:"workerId"`
	ExecutedAt time.Time `json:"executedAt"`
	DurationMS int64     `json:"duration"`
}

// Handler executes one kind of job.
type Handler interface {
	// ID is the stable identifier jobs are dispatched by.
	ID() string

	// Execute runs the job. message describes the outcome; data is the
	// job-specific payload included in the result envelope.
	Execute(ctx context.Context, input json.RawMessage, jobID string) (message string, data any, err error)
}

// Registry is the closed table of handlers, fixed at construction.
type Registry struct {
	handlers map[string]Handler
	clock    project.Clock
}

// NewRegistry builds a Registry from the given handlers. Duplicate ids are
// a programming error and rejected.
func NewRegistry(clock project.Clock, handlers ...Handler) (*Registry, error) {
	table := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		if _, dup := table[h.ID()]; dup {
			return nil, fmt.Errorf("duplicate worker id %q", h.ID())
		}
		table[h.ID()] = h
	}
	return &Registry{handlers: table, clock: clock}, nil
}

// WorkerIDs lists the registered ids, sorted.
func (r *Registry) WorkerIDs() []string {
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatch looks up the handler for req and runs it, wrapping the outcome
// in the result envelope. An unknown worker id is a failed result, not a
// panic: the envelope is the error surface for callers.
func (r *Registry) Dispatch(ctx context.Context, req Request) Result {
	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	executedAt := r.clock.Now()
	start := time.Now()

	res := Result{
		JobID:      jobID,
		WorkerID:   req.WorkerID,
		ExecutedAt: executedAt,
	}

	handler, ok := r.handlers[req.WorkerID]
	if !ok {
		res.Message = fmt.Sprintf("unknown worker: %s", req.WorkerID)
		res.Error = "UNKNOWN_WORKER"
		res.DurationMS = time.Since(start).Milliseconds()
		return res
	}

	slog.Info("job started", "worker", req.WorkerID, "job_id", jobID, "source", req.Source)

	message, data, err := handler.Execute(ctx, req.Input, jobID)
	res.DurationMS = time.Since(start).Milliseconds()
	res.Message = message
	res.Data = data
	if err != nil {
		res.Error = err.Error()
		slog.Warn("job failed", "worker", req.WorkerID, "job_id", jobID, "error", err)
		return res
	}

	res.Success = true
	slog.Info("job finished", "worker", req.WorkerID, "job_id", jobID, "duration_ms", res.DurationMS)
	return res
}
