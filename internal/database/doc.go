// Package database provides SQLite-based storage for attrguard.
//
// This package implements the HistoryDB, which stores finished batch
// reports so that earlier scans can be listed and re-printed. Reports are
// kept as JSON next to a few indexed summary columns.
//
// SQLite is provided by modernc.org/sqlite, a CGO-free implementation, so
// the database is a single file and the binary cross-compiles easily.
package database
