// Package extract turns LLM replies into core.ExtractedRecord values.
//
// Model output is frequently almost-JSON: wrapped in markdown fences,
// preceded by prose, carrying raw newlines inside strings, or quoted with
// single quotes. Parse applies a short ladder of repairs, each only when the
// previous step failed, and reports core.ErrUnparsableReply when none of them
// yields a JSON object.
//
// Field decoding is lenient about shape but never invents content: scalars
// accept strings, numbers, null or arrays, and list fields accept a single
// value where a list was expected.
package extract
