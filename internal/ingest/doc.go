// Package ingest drives documents through the pipeline: read, repair,
// validate, project, delete-on-success - with every failure routed into
// quarantine and the offending file relocated, never silently dropped.
//
// The batch driver sweeps the whole candidate set in sequential chunks and
// runs processors within a chunk under a bounded concurrency limit. Files
// are independent: one failure never aborts the batch or other in-flight
// files, and no ordering is guaranteed, which is safe because every target
// write is an idempotent upsert and the one merge rule (earliest joined_at
// wins) is order-free.
package ingest
