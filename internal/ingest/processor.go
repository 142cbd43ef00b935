package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/intake/internal/canon"
	"github.com/roach88/intake/internal/jsonrepair"
	"github.com/roach88/intake/internal/project"
	"github.com/roach88/intake/internal/source"
	"github.com/roach88/intake/internal/store"
)

// FileResult is the outcome of processing one candidate file.
type FileResult struct {
	FileName     string   `json:"file_name"`
	Success      bool     `json:"success"`
	UserID       string   `json:"user_id,omitempty"`
	Repaired     bool     `json:"repaired,omitempty"`
	Repairs      []string `json:"repairs,omitempty"`
	ErrorKind    string   `json:"error_kind,omitempty"`
	Error        string   `json:"error,omitempty"`
	QuarantineID string   `json:"quarantine_id,omitempty"`
}

// Processor runs one file through repair, validation, and projection.
type Processor struct {
	source    source.Store
	store     *store.Store
	projector *project.Projector
	clock     project.Clock
}

// NewProcessor creates a Processor. All collaborators are injected; the
// processor holds no global state.
func NewProcessor(src source.Store, st *store.Store, proj *project.Projector, clock project.Clock) *Processor {
	return &Processor{source: src, store: st, projector: proj, clock: clock}
}

// ProcessFile reads, repairs, validates, and projects one file.
//
// On success the source file is deleted. On a parse, validation, or
// database failure the raw text is captured as a quarantine record and the
// file is relocated to the quarantine area - a file is never both
// quarantined and deleted, and never dropped without one or the other.
// A read failure leaves the file untouched for the next sweep.
func (p *Processor) ProcessFile(ctx context.Context, fileName string) FileResult {
	raw, err := p.source.ReadFile(fileName)
	if err != nil {
		slog.Error("read failed, leaving file for next sweep", "file", fileName, "error", err)
		return FileResult{FileName: fileName, Error: err.Error()}
	}

	parsed, err := jsonrepair.Parse(raw)
	if err != nil {
		return p.quarantine(ctx, fileName, raw, store.ErrKindParse, err)
	}
	if parsed.Repaired {
		slog.Info("repaired document structure", "file", fileName, "repairs", parsed.Repairs)
	}

	user, err := canon.Validate(parsed.Data)
	if err != nil {
		return p.quarantine(ctx, fileName, raw, classify(err), err)
	}

	if err := p.projector.Project(ctx, user); err != nil {
		return p.quarantine(ctx, fileName, raw, store.ErrKindDatabase, err)
	}

	if err := p.source.DeleteFile(fileName); err != nil {
		// The document is fully projected; a lingering source file only
		// means a redundant (idempotent) re-run next sweep.
		slog.Error("delete after success failed", "file", fileName, "error", err)
	}

	slog.Info("processed", "file", fileName, "user_id", user.UserID)
	return FileResult{
		FileName: fileName,
		Success:  true,
		UserID:   user.UserID,
		Repaired: parsed.Repaired,
		Repairs:  parsed.Repairs,
	}
}

// quarantine captures a failed document and relocates its source file.
func (p *Processor) quarantine(ctx context.Context, fileName, raw, kind string, cause error) FileResult {
	result := FileResult{
		FileName:  fileName,
		ErrorKind: kind,
		Error:     cause.Error(),
	}

	id, err := p.store.CreateQuarantine(ctx, store.QuarantineItem{
		FileName:     fileName,
		FilePath:     fileName,
		RawData:      raw,
		ErrorType:    kind,
		ErrorMessage: cause.Error(),
		AttemptedAt:  p.clock.Now(),
	})
	if err != nil {
		// The file move below still preserves the document for replay.
		slog.Error("failed to record quarantine item", "file", fileName, "error", err)
	} else {
		result.QuarantineID = id
	}

	if err := p.source.MoveToQuarantine(fileName); err != nil {
		slog.Error("failed to relocate file to quarantine area", "file", fileName, "error", err)
	}

	slog.Warn("quarantined", "file", fileName, "kind", kind, "error", cause)
	return result
}

// classify maps an error to its quarantine kind. Anything that is neither
// a parse, validation, nor database error is a transformation defect.
func classify(err error) string {
	switch {
	case jsonrepair.IsParseError(err):
		return store.ErrKindParse
	case canon.IsValidationError(err):
		return store.ErrKindValidation
	case store.IsDatabaseError(err):
		return store.ErrKindDatabase
	default:
		return store.ErrKindTransformation
	}
}

// validateBatchParams guards the driver's knobs.
func validateBatchParams(batchSize, concurrency int) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be greater than 0, got %d", batchSize)
	}
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be greater than 0, got %d", concurrency)
	}
	return nil
}
