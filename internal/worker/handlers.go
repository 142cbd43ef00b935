package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/intake/internal/ingest"
)

// Worker ids in the dispatch table.
const (
	ProcessFileID = "process-file"
	ETLBatchID    = "etl-batch"
)

// Batch defaults applied when the job input omits them.
const (
	DefaultBatchSize   = 100
	DefaultConcurrency = 5
)

// ProcessFileWorker ingests a single named file.
type ProcessFileWorker struct {
	Processor *ingest.Processor
}

// ProcessFileInput is the job input for ProcessFileWorker.
type ProcessFileInput struct {
	FileName string `json:"fileName"`
}

func (w *ProcessFileWorker) ID() string { return ProcessFileID }

func (w *ProcessFileWorker) Execute(ctx context.Context, input json.RawMessage, jobID string) (string, any, error) {
	var in ProcessFileInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "invalid input", nil, fmt.Errorf("decode input: %w", err)
	}
	if in.FileName == "" {
		return "invalid input", nil, fmt.Errorf("fileName is required")
	}

	res := w.Processor.ProcessFile(ctx, in.FileName)
	if !res.Success {
		return fmt.Sprintf("failed to process %s", in.FileName), res, fmt.Errorf("%s", res.Error)
	}
	return fmt.Sprintf("processed %s", in.FileName), res, nil
}

// ETLBatchWorker sweeps the whole candidate file set.
type ETLBatchWorker struct {
	Processor *ingest.Processor
}

// ETLBatchInput is the job input for ETLBatchWorker. Zero values take the
// defaults.
type ETLBatchInput struct {
	BatchSize   int `json:"batchSize"`
	Concurrency int `json:"concurrency"`
}

func (w *ETLBatchWorker) ID() string { return ETLBatchID }

func (w *ETLBatchWorker) Execute(ctx context.Context, input json.RawMessage, jobID string) (string, any, error) {
	in := ETLBatchInput{BatchSize: DefaultBatchSize, Concurrency: DefaultConcurrency}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return "invalid input", nil, fmt.Errorf("decode input: %w", err)
		}
		if in.BatchSize == 0 {
			in.BatchSize = DefaultBatchSize
		}
		if in.Concurrency == 0 {
			in.Concurrency = DefaultConcurrency
		}
	}

	summary, err := w.Processor.RunBatch(ctx, in.BatchSize, in.Concurrency)
	if err != nil {
		return "batch sweep failed", nil, err
	}
	message := fmt.Sprintf("processed %d files: %d successful, %d failed",
		summary.Total, summary.Successful, summary.Failed)
	return message, summary, nil
}
