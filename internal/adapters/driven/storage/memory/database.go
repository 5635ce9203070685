package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/qutils/internal/core/domain"
	"github.com/custodia-labs/qutils/internal/core/ports/driven"
)

// Ensure Database implements the interface.
var _ driven.Database = (*Database)(nil)

// Database is an in-memory implementation of driven.Database for testing.
// Constraint evaluation follows SQL precedence so results match the SQLite
// adapter for the same constraint list.
type Database struct {
	mu      sync.RWMutex
	path    string
	tables  map[string]*table
	lastErr *domain.SQLError
	closed  bool
}

type table struct {
	columns []domain.Column
	rows    []domain.Row
}

// NewDatabase creates an empty in-memory database identified by path.
func NewDatabase(path string) *Database {
	return &Database{
		path:   path,
		tables: make(map[string]*table),
	}
}

// Opener returns a driven.Opener that hands out one Database per path.
// Opening the same path again returns the same Database until it is closed.
func Opener() driven.Opener {
	var mu sync.Mutex
	dbs := make(map[string]*Database)
	return driven.OpenerFunc(func(path string) (driven.Database, error) {
		mu.Lock()
		defer mu.Unlock()
		if db, ok := dbs[path]; ok && !db.isClosed() {
			return db, nil
		}
		db := NewDatabase(path)
		dbs[path] = db
		return db, nil
	})
}

func (d *Database) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// fail records err as the last error (caller must hold the write lock).
func (d *Database) fail(query string, err error) error {
	d.lastErr = &domain.SQLError{Query: query, Err: err}
	return d.lastErr
}

// lookup returns the named table (caller must hold a lock).
func (d *Database) lookup(name string) (*table, error) {
	if d.closed {
		return nil, domain.ErrStoreClosed
	}
	t, ok := d.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTableNotFound, name)
	}
	return t, nil
}

// CreateTable creates a table. Returns false if it already exists.
func (d *Database) CreateTable(_ context.Context, name string, columns []domain.Column) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tables[name]; ok {
		return false, nil
	}
	if name == "" || len(columns) == 0 {
		return false, d.fail("CREATE TABLE "+name, domain.ErrInvalidInput)
	}
	d.tables[name] = &table{columns: columns}
	return true, nil
}

// TableExists reports whether the table exists.
func (d *Database) TableExists(_ context.Context, name string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.tables[name]
	return ok, nil
}

// Tables lists the tables in name order.
func (d *Database) Tables(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.tables))
	for name := range d.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Get returns copies of the matching rows.
func (d *Database) Get(_ context.Context, q domain.Query) ([]domain.Row, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.lookup(q.Table)
	if err != nil {
		return []domain.Row{}, d.fail("SELECT "+q.Table, err)
	}

	result := []domain.Row{}
	for _, row := range t.rows {
		if matches(row, q.Constraints) {
			result = append(result, project(row, q.Columns))
		}
	}

	if len(q.Order) > 0 {
		sort.SliceStable(result, func(i, j int) bool {
			for _, o := range q.Order {
				c := compare(result[i][o.Column], result[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Descending {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

// Insert appends a row, enforcing UNIQUE columns.
func (d *Database) Insert(_ context.Context, name string, row domain.Row) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.lookup(name)
	if err != nil {
		return d.fail("INSERT INTO "+name, err)
	}
	if len(row) == 0 {
		return d.fail("INSERT INTO "+name, domain.ErrInvalidInput)
	}

	for _, col := range t.columns {
		if !col.Unique {
			continue
		}
		for _, existing := range t.rows {
			if compare(existing[col.Name], row[col.Name]) == 0 {
				return d.fail("INSERT INTO "+name, fmt.Errorf("UNIQUE constraint failed: %s.%s", name, col.Name))
			}
		}
	}

	t.rows = append(t.rows, copyRow(row))
	return nil
}

// Update sets row's columns on matching rows.
func (d *Database) Update(_ context.Context, name string, row domain.Row, constraints []domain.Constraint) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.lookup(name)
	if err != nil {
		return d.fail("UPDATE "+name, err)
	}
	for _, existing := range t.rows {
		if !matches(existing, constraints) {
			continue
		}
		for k, v := range row {
			existing[k] = normalize(v)
		}
	}
	return nil
}

// Delete removes matching rows.
func (d *Database) Delete(_ context.Context, name string, constraints []domain.Constraint) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.lookup(name)
	if err != nil {
		return d.fail("DELETE FROM "+name, err)
	}
	kept := t.rows[:0]
	for _, row := range t.rows {
		if !matches(row, constraints) {
			kept = append(kept, row)
		}
	}
	t.rows = kept
	return nil
}

// Exists reports whether any row matches.
func (d *Database) Exists(ctx context.Context, name string, constraints []domain.Constraint) (bool, error) {
	n, err := d.Count(ctx, name, constraints)
	return n > 0, err
}

// Count returns the number of matching rows.
func (d *Database) Count(_ context.Context, name string, constraints []domain.Constraint) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.lookup(name)
	if err != nil {
		return 0, d.fail("COUNT "+name, err)
	}
	n := 0
	for _, row := range t.rows {
		if matches(row, constraints) {
			n++
		}
	}
	return n, nil
}

// LastError returns the most recent failure, or nil.
func (d *Database) LastError() *domain.SQLError {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// Path returns the identifying path.
func (d *Database) Path() string {
	return d.path
}

// Close marks the database closed.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (d *Database) IsClosed() bool {
	return d.isClosed()
}

// matches evaluates constraints with AND binding tighter than OR, the same
// way SQL evaluates the positionally joined WHERE clause.
func matches(row domain.Row, constraints []domain.Constraint) bool {
	if len(constraints) == 0 {
		return true
	}

	group := true
	for i, c := range constraints {
		group = group && compare(row[c.Column], c.Value) == 0
		last := i == len(constraints)-1
		if last || c.Joiner.Normalize() == domain.JoinOr {
			if group {
				return true
			}
			group = true
		}
	}
	return false
}

func project(row domain.Row, columns []string) domain.Row {
	if len(columns) == 0 {
		return copyRow(row)
	}
	out := make(domain.Row, len(columns))
	for _, c := range columns {
		out[c] = copyValue(row[c])
	}
	return out
}

func copyRow(row domain.Row) domain.Row {
	out := make(domain.Row, len(row))
	for k, v := range row {
		out[k] = copyValue(normalize(v))
	}
	return out
}

func copyValue(v any) any {
	if b, ok := v.([]byte); ok {
		cp := make([]byte, len(b))
		copy(cp, b)
		return cp
	}
	return v
}

// normalize maps Go values onto the types the SQLite driver returns.
func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint32:
		return int64(val)
	case domain.Kind:
		return int64(val)
	case float32:
		return float64(val)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

// compare orders two column values. Text and blobs compare bytewise,
// numbers numerically; NULL sorts first and never equals a non-NULL value.
func compare(a, b any) int {
	a, b = normalize(a), normalize(b)

	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
		return -1
	}
	if _, ok := toFloat(b); ok {
		return 1
	}

	return bytes.Compare(toBytes(a), toBytes(b))
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}

func toBytes(v any) []byte {
	switch val := v.(type) {
	case []byte:
		return val
	case string:
		return []byte(val)
	default:
		return []byte(fmt.Sprint(val))
	}
}
