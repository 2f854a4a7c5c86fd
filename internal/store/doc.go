// Package store defines the persistence interfaces and shared database
// plumbing used by the rest of the application. Concrete SQLite
// implementations live in internal/platform/sqlite; everything above the
// store boundary depends only on the interfaces here.
package store
