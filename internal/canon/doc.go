// Package canon defines the canonical in-memory form of one advocate
// document and the validator that produces it from a parsed JSON tree.
//
// Validation is transform-then-check per field: sentinel literals used by
// upstream exporters to mean "intentionally missing" are mapped to absence,
// recoverable data-quality defects (negative counters, "NaN", numeric brand
// names) are coerced to safe values, and genuine rule breaches are
// accumulated as field-pathed violations so a whole document's problems are
// reported at once rather than one per attempt.
package canon
