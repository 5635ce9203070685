package domain

import (
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether name is a plain SQL identifier: a letter or
// underscore followed by letters, digits or underscores.
func IsIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// ColumnType is the declared SQL type of a column.
type ColumnType string

// Supported column types.
const (
	ColumnText    ColumnType = "TEXT"
	ColumnBlob    ColumnType = "BLOB"
	ColumnInteger ColumnType = "INTEGER"
	ColumnReal    ColumnType = "REAL"
)

// IsValid returns true if the column type is recognised.
func (t ColumnType) IsValid() bool {
	switch t {
	case ColumnText, ColumnBlob, ColumnInteger, ColumnReal:
		return true
	default:
		return false
	}
}

// Column describes a column in a CREATE TABLE statement.
type Column struct {
	// Name is the column name.
	Name string

	// Type is the declared SQL type.
	Type ColumnType

	// Unique adds a UNIQUE constraint.
	Unique bool

	// NotNull adds a NOT NULL constraint.
	NotNull bool
}

// Joiner combines a constraint with the constraint that follows it.
type Joiner string

// Available joiners.
const (
	JoinAnd Joiner = "AND"
	JoinOr  Joiner = "OR"
)

// IsValid returns true if the joiner is AND or OR.
// Case is ignored.
func (j Joiner) IsValid() bool {
	switch Joiner(strings.ToUpper(string(j))) {
	case JoinAnd, JoinOr:
		return true
	default:
		return false
	}
}

// Normalize returns the upper-case joiner, defaulting to AND when empty.
func (j Joiner) Normalize() Joiner {
	if j == "" {
		return JoinAnd
	}
	return Joiner(strings.ToUpper(string(j)))
}

// Constraint is an equality term in a WHERE clause.
//
// Joiner applies after this term: it joins this constraint to the next one.
// The joiner of the last constraint is ignored. Terms are emitted in order,
// so standard SQL precedence (AND before OR) applies to the result.
type Constraint struct {
	Column string
	Value  any
	Joiner Joiner
}

// Where builds a single-term constraint list.
func Where(column string, value any) []Constraint {
	return []Constraint{{Column: column, Value: value, Joiner: JoinAnd}}
}

// Order is an ORDER BY term.
type Order struct {
	Column     string
	Descending bool
}

// Query describes a SELECT.
type Query struct {
	// Table is the table to read from.
	Table string

	// Columns restricts the selected columns. Empty selects all.
	Columns []string

	// Constraints form the optional WHERE clause.
	Constraints []Constraint

	// Order is the optional ORDER BY clause.
	Order []Order

	// Limit caps the number of rows. Zero or negative means no limit.
	Limit int
}

// Row maps a column name to its value. Values are the types produced by the
// SQL driver: []byte, string, int64, float64, bool or nil.
type Row map[string]any
