package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/qutils/internal/core/domain"
	"github.com/custodia-labs/qutils/internal/core/ports/driven"
	"github.com/custodia-labs/qutils/internal/logger"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Ensure Manager implements the interface.
var _ driven.Database = (*Manager)(nil)

// Manager builds and executes parameterized statements against one SQLite
// database file.
type Manager struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	lastErr *domain.SQLError
}

// Open opens (creating if needed) the SQLite database at path.
// The parent directory is created when missing.
func Open(path string) (*Manager, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", domain.ErrInvalidInput)
	}

	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		// WAL mode lets readers proceed while another instance writes.
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrConnection, err)
	}

	// Every connection to :memory: is a separate database.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging database: %w", domain.ErrConnection, err)
	}

	logger.Debug("sqlite: opened %s", path)
	return &Manager{db: db, path: path}, nil
}

// Opener returns a driven.Opener backed by Open.
func Opener() driven.Opener {
	return driven.OpenerFunc(func(path string) (driven.Database, error) {
		return Open(path)
	})
}

// Close closes the database connection.
func (m *Manager) Close() error {
	logger.Debug("sqlite: closing %s", m.path)
	return m.db.Close()
}

// Path returns the database file path.
func (m *Manager) Path() string {
	return m.path
}

// LastError returns the most recent failed statement, or nil.
func (m *Manager) LastError() *domain.SQLError {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// fail records a failed statement as the last error and returns it wrapped.
func (m *Manager) fail(query string, err error) error {
	sqlErr := &domain.SQLError{Query: query, Err: err}

	m.mu.Lock()
	m.lastErr = sqlErr
	m.mu.Unlock()

	logger.Warn("sqlite: %v", sqlErr)

	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %w", domain.ErrTableNotFound, sqlErr)
	}
	return sqlErr
}

// invalid records a statement that could not be built.
func (m *Manager) invalid(op string, err error) error {
	return m.fail(op, err)
}

// CreateTable creates a table with the given columns.
// Returns false and no error if the table already exists.
func (m *Manager) CreateTable(ctx context.Context, name string, columns []domain.Column) (bool, error) {
	exists, err := m.TableExists(ctx, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	query, err := buildCreate(name, columns)
	if err != nil {
		return false, m.invalid("CREATE TABLE "+name, err)
	}

	if _, err := m.db.ExecContext(ctx, query); err != nil {
		// Another connection may have created it since the lookup.
		if exists, lookupErr := m.TableExists(ctx, name); lookupErr == nil && exists {
			return false, nil
		}
		return false, m.fail(query, err)
	}
	logger.Debug("sqlite: created table %s in %s", name, m.path)
	return true, nil
}

// TableExists reports whether the table exists.
func (m *Manager) TableExists(ctx context.Context, name string) (bool, error) {
	if _, err := quoteIdent(name); err != nil {
		return false, m.invalid("table lookup "+name, err)
	}

	const query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	var n int
	if err := m.db.QueryRowContext(ctx, query, name).Scan(&n); err != nil {
		return false, m.fail(query, err)
	}
	return n > 0, nil
}

// Tables lists the user tables in the database.
func (m *Manager) Tables(ctx context.Context) ([]string, error) {
	const query = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, m.fail(query, err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, m.fail(query, err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, m.fail(query, err)
	}
	return tables, nil
}

// Get runs a SELECT and returns every row as a column-name mapping.
func (m *Manager) Get(ctx context.Context, q domain.Query) ([]domain.Row, error) {
	query, args, err := buildSelect(q)
	if err != nil {
		return []domain.Row{}, m.invalid("SELECT "+q.Table, err)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return []domain.Row{}, m.fail(query, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return []domain.Row{}, m.fail(query, err)
	}
	return result, nil
}

// scanRows reads every row into a domain.Row.
func scanRows(rows *sql.Rows) ([]domain.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	result := []domain.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(domain.Row, len(cols))
		for i, c := range cols {
			// The driver may reuse the buffer on the next Scan.
			if b, ok := values[i].([]byte); ok {
				cp := make([]byte, len(b))
				copy(cp, b)
				row[c] = cp
				continue
			}
			row[c] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}

// Insert adds a row.
func (m *Manager) Insert(ctx context.Context, table string, row domain.Row) error {
	query, args, err := buildInsert(table, row)
	if err != nil {
		return m.invalid("INSERT INTO "+table, err)
	}
	return m.exec(ctx, query, args)
}

// Update sets row's columns on every row matching the constraints.
func (m *Manager) Update(ctx context.Context, table string, row domain.Row, constraints []domain.Constraint) error {
	query, args, err := buildUpdate(table, row, constraints)
	if err != nil {
		return m.invalid("UPDATE "+table, err)
	}
	return m.exec(ctx, query, args)
}

// Delete removes rows matching the constraints.
func (m *Manager) Delete(ctx context.Context, table string, constraints []domain.Constraint) error {
	query, args, err := buildDelete(table, constraints)
	if err != nil {
		return m.invalid("DELETE FROM "+table, err)
	}
	return m.exec(ctx, query, args)
}

// Exists reports whether any row matches the constraints.
func (m *Manager) Exists(ctx context.Context, table string, constraints []domain.Constraint) (bool, error) {
	query, args, err := buildExists(table, constraints)
	if err != nil {
		return false, m.invalid("EXISTS "+table, err)
	}

	var found int
	if err := m.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, m.fail(query, err)
	}
	return found != 0, nil
}

// Count returns the number of rows matching the constraints.
func (m *Manager) Count(ctx context.Context, table string, constraints []domain.Constraint) (int, error) {
	query, args, err := buildCount(table, constraints)
	if err != nil {
		return 0, m.invalid("COUNT "+table, err)
	}

	var n int
	if err := m.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, m.fail(query, err)
	}
	return n, nil
}

func (m *Manager) exec(ctx context.Context, query string, args []any) error {
	if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
		return m.fail(query, err)
	}
	return nil
}

// IsSQLError reports whether err carries a recorded SQL failure.
func IsSQLError(err error) bool {
	var sqlErr *domain.SQLError
	return errors.As(err, &sqlErr)
}
