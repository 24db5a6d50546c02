// Package postgres implements the adapter contract on PostgreSQL via
// pgx. Each model is stored in its own table as a JSONB document keyed by
// id, so plugin-contributed schema fields persist without migrations.
package postgres
