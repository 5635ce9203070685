// Package sqlite provides the SQLite implementation of driven.Database.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A Manager wraps one database file and
// translates structured requests into parameterized SQL:
//
//   - CreateTable: CREATE TABLE, skipped when the table already exists
//   - Get: SELECT with optional WHERE, ORDER BY and LIMIT
//   - Insert, Update, Delete, Exists, Count
//
// # Constraints
//
// WHERE clauses are built from equality constraints. Each constraint carries the
// joiner (AND/OR) that links it to the next constraint; the joiner of the last
// constraint is never emitted. Identifiers are validated and double-quoted;
// values are always bound as parameters.
//
// # Errors
//
// Every failed statement is recorded as a domain.SQLError holding the engine error
// and the offending query. The most recent one is available from LastError until
// the next failure replaces it.
//
// # Thread Safety
//
// A Manager is safe for concurrent use. Files are opened in WAL mode with a busy
// timeout so several instances can share one database.
package sqlite
