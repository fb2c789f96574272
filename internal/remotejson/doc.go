// Package remotejson keeps the JSON content of a table column in a blob store
// and only the blob path in the row.
//
// A [Field] reconciles a [Column] with the store each time its row is saved:
// it reuses the path already stored for the row or generates a new one,
// skips the write when the value did not change, deletes the blob when the
// value becomes null. Loaded rows hold a [Proxy] that reads its blob lazily
// and tracks whether it was modified since.
//
// [Bind] wires a Field into a jsonldb.Table through the table's hooks.
package remotejson
