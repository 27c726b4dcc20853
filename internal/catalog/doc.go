// Package catalog persists episodes, their thumbnails, and their transcript
// segments with embeddings.
//
// The Store runs on SQLite (modernc.org/sqlite, the default) or PostgreSQL
// through the pgx database/sql driver. Queries are written with ? placeholders
// and rebound for postgres. SQLite writes retry with backoff while the
// database reports busy.
//
// Each episode carries four independent statuses (processing, transcription,
// thumbnails, embeddings) plus the last error message. Schema changes bump
// schemaVersion in schema.go; an older database must be recreated.
package catalog
