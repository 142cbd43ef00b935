package ingest

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// FailedFile pairs a failed file with its reason in the batch summary.
type FailedFile struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

// Summary aggregates one batch sweep.
type Summary struct {
	Total           int           `json:"total"`
	Successful      int           `json:"successful"`
	Failed          int           `json:"failed"`
	Duration        time.Duration `json:"duration"`
	SuccessfulFiles []string      `json:"successful_files"`
	FailedFiles     []FailedFile  `json:"failed_files"`
	Results         []FileResult  `json:"-"`
}

// RunBatch enumerates the candidate file list once, splits it into
// sequential chunks of batchSize, and processes each chunk with at most
// concurrency files in flight. The whole chunk completes before the next
// starts. Per-file failures are aggregated, never propagated: a bad file
// costs exactly one quarantine record.
func (p *Processor) RunBatch(ctx context.Context, batchSize, concurrency int) (Summary, error) {
	if err := validateBatchParams(batchSize, concurrency); err != nil {
		return Summary{}, err
	}

	start := time.Now()

	files, err := p.source.ListFiles()
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Total: len(files)}
	if len(files) == 0 {
		slog.Info("no files to process")
		summary.Duration = time.Since(start)
		return summary, nil
	}

	slog.Info("starting batch sweep", "files", len(files), "batch_size", batchSize, "concurrency", concurrency)

	totalChunks := (len(files) + batchSize - 1) / batchSize
	for i := 0; i < len(files); i += batchSize {
		chunk := files[i:min(i+batchSize, len(files))]
		slog.Info("processing chunk",
			"chunk", i/batchSize+1,
			"of", totalChunks,
			"files", len(chunk))

		results := p.processChunk(ctx, chunk, concurrency)
		for _, r := range results {
			summary.Results = append(summary.Results, r)
			if r.Success {
				summary.Successful++
				summary.SuccessfulFiles = append(summary.SuccessfulFiles, r.FileName)
			} else {
				summary.Failed++
				summary.FailedFiles = append(summary.FailedFiles, FailedFile{
					FileName: r.FileName,
					Error:    r.Error,
				})
			}
		}

		slog.Info("progress",
			"done", summary.Successful+summary.Failed,
			"total", len(files),
			"successful", summary.Successful,
			"failed", summary.Failed)
	}

	summary.Duration = time.Since(start)
	slog.Info("batch sweep complete",
		"total", summary.Total,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"duration", summary.Duration)
	return summary, nil
}

// processChunk runs one chunk with bounded parallelism. Each file writes
// its result into its own slot, so no result-side locking is needed, and
// workers never return errors to the group - failure is data here.
func (p *Processor) processChunk(ctx context.Context, files []string, concurrency int) []FileResult {
	results := make([]FileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, name := range files {
		i, name := i, name
		g.Go(func() error {
			results[i] = p.ProcessFile(ctx, name)
			return nil
		})
	}
	// Workers only return nil; Wait is for completion, not errors.
	_ = g.Wait()

	return results
}
