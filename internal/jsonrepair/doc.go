// Package jsonrepair recovers near-valid JSON text into a parseable document.
//
// Source files arrive from independently-produced exports and commonly carry
// two classes of structural corruption: trailing commas before a closing
// brace or bracket, and truncated output with unclosed braces/brackets.
// Parse always tries strict decoding first; repair is a fallback, so the
// common valid case costs exactly one parse.
//
// Repairs are tagged ("removed_trailing_commas", "balanced_<n>_brackets")
// so callers can log what was done to a document before it was accepted.
package jsonrepair
