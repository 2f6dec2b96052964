// Package postgres provides PostgreSQL implementations of the store
// interfaces defined in internal/store, the embedded goose schema
// migrations and the connection helper used by the server binary.
//
// Read queries LEFT JOIN users so that task, comment and file projections
// carry the owner's username; rows whose owner was deleted come back with
// an empty name.
package postgres
