// Package sqlite provides SQLite-backed implementations of the store
// interfaces using database/sql with the cgo-free modernc.org/sqlite
// driver. Schema migrations are embedded and applied with goose at
// startup.
package sqlite
