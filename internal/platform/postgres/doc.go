// Package postgres implements the store interfaces on PostgreSQL through the
// pgx stdlib driver and owns the embedded goose migrations.
//
// Video tasks are listed newest first; users are locked with SELECT ... FOR
// UPDATE when quota is consumed.
package postgres
