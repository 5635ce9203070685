package driven

import (
	"context"

	"github.com/custodia-labs/qutils/internal/core/domain"
)

// Database executes structured statements against a single embedded
// database file. Statements are always parameterized; identifiers are
// validated by the implementation.
//
// Every failed statement is recorded and can be retrieved with LastError
// until the next failure overwrites it.
type Database interface {
	// CreateTable creates a table with the given columns.
	// Returns false and no error if the table already exists.
	CreateTable(ctx context.Context, name string, columns []domain.Column) (bool, error)

	// TableExists reports whether the table exists.
	TableExists(ctx context.Context, name string) (bool, error)

	// Tables lists the user tables in the database.
	Tables(ctx context.Context) ([]string, error)

	// Get runs a SELECT. Returns an empty slice when nothing matches.
	Get(ctx context.Context, q domain.Query) ([]domain.Row, error)

	// Insert adds a row.
	Insert(ctx context.Context, table string, row domain.Row) error

	// Update sets the row's columns on every row matching the constraints.
	Update(ctx context.Context, table string, row domain.Row, constraints []domain.Constraint) error

	// Delete removes rows matching the constraints, or all rows when
	// constraints is empty.
	Delete(ctx context.Context, table string, constraints []domain.Constraint) error

	// Exists reports whether any row matches the constraints.
	Exists(ctx context.Context, table string, constraints []domain.Constraint) (bool, error)

	// Count returns the number of rows matching the constraints.
	Count(ctx context.Context, table string, constraints []domain.Constraint) (int, error)

	// LastError returns the most recent failed statement, or nil.
	LastError() *domain.SQLError

	// Path returns the database file path.
	Path() string

	// Close closes the underlying connection.
	Close() error
}

// Opener opens a Database for a file path.
type Opener interface {
	Open(path string) (Database, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Database, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Database, error) {
	return f(path)
}
