// Package store provides SQLite-backed persistence for the ingest
// pipeline's five target collections and the quarantine records.
//
// Every write to a target collection is an idempotent upsert keyed by a
// stable business id (user_id, brand_id, program_id, membership_id,
// task_id), so re-processing a file is always safe and concurrent
// processors for different files never conflict. The one merge rule with
// history semantics - earliest joined_at wins on a membership - is applied
// inside the upsert statement itself, so it holds regardless of the order
// files are processed in.
//
// Brand and membership ids are derived (UUIDv5 over the DNS namespace),
// never generated: the same brand name maps to the same brand_id across
// runs and processes.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Timestamps are stored as RFC 3339 UTC text, which makes lexicographic
// comparison equal to chronological comparison; the min() merge on
// joined_at relies on this.
package store
