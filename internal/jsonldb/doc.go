// Package jsonldb provides a generic, concurrent-safe, JSONL-backed row store.
//
// # Overview
//
// [Table] keeps every row of a JSONL file in memory as its raw JSON line,
// keyed by the row's [ksid.ID]. Reads decode a fresh row from the raw line,
// so a row returned by [Table.Get] never shares state with an earlier one.
// This matches what a relational mapper does on reload, and is what lets a
// column read its own previously stored raw value with [Table.RawString].
//
// # Hooks
//
// A [Hook] observes the row life cycle: PreSave runs before a row is
// marshaled, with a flag telling whether it is an insert, and may rewrite
// the row's fields; PostLoad runs after a row is decoded.
//
// # File Format
//
// JSONL files with line 1 as schema header, subsequent lines as JSON rows
// sorted by ID. Every write rewrites the file atomically through a temporary
// file and a rename.
package jsonldb
