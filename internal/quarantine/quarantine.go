// Package quarantine implements the failed-item lifecycle: operator edits,
// single and batch retry, ignore, and deletion.
//
// Retry re-runs validation and projection directly on the stored raw text.
// The repair engine is deliberately not re-attempted here: a quarantined
// document only becomes retryable after an operator edited it, and the
// operator is assumed to have produced syntactically valid JSON. The
// real-time ingest path, by contrast, always tries repair first.
package quarantine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/intake/internal/canon"
	"github.com/roach88/intake/internal/project"
	"github.com/roach88/intake/internal/store"
)

// MaxRetries is the batch-retry attempt cap. Items at or above it are
// skipped unless force is passed.
const MaxRetries = 3

// FileRemover deletes a relocated file from the quarantine area.
// Implemented by source.Local and source.Memory.
type FileRemover interface {
	RemoveQuarantined(name string) error
}

// Service mutates quarantine records and replays their documents.
type Service struct {
	store     *store.Store
	projector *project.Projector
	files     FileRemover
	clock     project.Clock
}

// New creates a Service. files may be nil when no quarantine area exists
// (records created before file relocation succeeded).
func New(st *store.Store, proj *project.Projector, files FileRemover, clock project.Clock) *Service {
	return &Service{store: st, projector: proj, files: files, clock: clock}
}

// Get returns one quarantine record.
func (s *Service) Get(ctx context.Context, id string) (store.QuarantineItem, error) {
	return s.store.GetQuarantine(ctx, id)
}

// List returns quarantine records matching the filter.
func (s *Service) List(ctx context.Context, f store.QuarantineFilter) ([]store.QuarantineItem, error) {
	return s.store.ListQuarantine(ctx, f)
}

// Stats summarizes the quarantine area.
func (s *Service) Stats(ctx context.Context) (store.QuarantineStats, error) {
	return s.store.GetQuarantineStats(ctx)
}

// Edit replaces the raw text (and notes) of a record. The new text must be
// strictly valid JSON - edits are the operator's chance to fix structure,
// and accepting a still-broken document would make the retry path's
// no-repair policy a trap. Status resets to failed so the item is
// retryable again.
func (s *Service) Edit(ctx context.Context, id, rawData, notes string) error {
	var probe any
	if err := json.Unmarshal([]byte(rawData), &probe); err != nil {
		return fmt.Errorf("edited document is not valid JSON: %w", err)
	}
	if err := s.store.UpdateQuarantineRaw(ctx, id, rawData, notes); err != nil {
		return err
	}
	slog.Info("quarantine item edited", "id", id)
	return nil
}

// Ignore transitions a record to the terminal ignored status.
func (s *Service) Ignore(ctx context.Context, id, notes string) error {
	if err := s.store.MarkIgnored(ctx, id, notes); err != nil {
		return err
	}
	slog.Info("quarantine item ignored", "id", id)
	return nil
}

// Delete removes the database record and, best-effort, the relocated
// file. A missing file is logged and does not block record deletion.
func (s *Service) Delete(ctx context.Context, id string) error {
	item, err := s.store.GetQuarantine(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuarantine(ctx, id); err != nil {
		return err
	}
	if s.files != nil {
		if err := s.files.RemoveQuarantined(item.FileName); err != nil {
			slog.Warn("could not remove quarantined file", "file", item.FileName, "error", err)
		}
	}
	slog.Info("quarantine item deleted", "id", id, "file", item.FileName)
	return nil
}

// RetryResult reports a successful replay.
type RetryResult struct {
	UserID string `json:"user_id"`
}

// Retry replays one record: strict parse, validate, project. On success
// the item becomes fixed (terminal). On failure the record is updated in
// place - new error message, status back to failed - and the error is
// returned to the caller synchronously.
func (s *Service) Retry(ctx context.Context, id string) (RetryResult, error) {
	item, err := s.store.GetQuarantine(ctx, id)
	if err != nil {
		return RetryResult{}, err
	}

	if err := s.store.IncrementRetry(ctx, id, s.clock.Now()); err != nil {
		return RetryResult{}, err
	}

	userID, replayErr := s.replay(ctx, item.RawData)
	if replayErr != nil {
		if err := s.store.RecordRetryFailure(ctx, id, replayErr.Error(), s.clock.Now()); err != nil {
			slog.Error("failed to record retry failure", "id", id, "error", err)
		}
		slog.Warn("retry failed", "id", id, "file", item.FileName, "error", replayErr)
		return RetryResult{}, replayErr
	}

	if err := s.store.MarkFixed(ctx, id, s.clock.Now()); err != nil {
		return RetryResult{}, err
	}
	slog.Info("retry succeeded", "id", id, "file", item.FileName, "user_id", userID)
	return RetryResult{UserID: userID}, nil
}

// replay validates and projects raw text without the repair engine.
func (s *Service) replay(ctx context.Context, raw string) (string, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", fmt.Errorf("JSON parse failed: %w", err)
	}
	user, err := canon.Validate(doc)
	if err != nil {
		return "", err
	}
	if err := s.projector.Project(ctx, user); err != nil {
		return "", err
	}
	return user.UserID, nil
}

// ItemError pairs a record id with its per-item batch-retry failure.
type ItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchRetryResult aggregates a batch replay.
type BatchRetryResult struct {
	Success int         `json:"success"`
	Failed  int         `json:"failed"`
	Skipped int         `json:"skipped"`
	Errors  []ItemError `json:"errors"`
}

// BatchRetry replays a set of records sequentially. Terminal items
// (fixed, ignored) and missing ids are skipped silently; items at or
// above the retry cap are skipped with a recorded reason unless force is
// true. Each item's outcome is independent.
func (s *Service) BatchRetry(ctx context.Context, ids []string, force bool) BatchRetryResult {
	var res BatchRetryResult

	for _, id := range ids {
		item, err := s.store.GetQuarantine(ctx, id)
		if err != nil {
			res.Skipped++
			continue
		}

		if item.Status == store.StatusFixed || item.Status == store.StatusIgnored {
			res.Skipped++
			continue
		}

		if !force && item.RetryCount >= MaxRetries {
			res.Skipped++
			res.Errors = append(res.Errors, ItemError{
				ID:    id,
				Error: "max retries exceeded (use force to override)",
			})
			continue
		}

		if _, err := s.Retry(ctx, id); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, ItemError{ID: id, Error: err.Error()})
			continue
		}
		res.Success++
	}

	slog.Info("batch retry complete",
		"success", res.Success, "failed", res.Failed, "skipped", res.Skipped)
	return res
}
