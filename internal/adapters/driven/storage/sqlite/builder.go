package sqlite

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/qutils/internal/core/domain"
)

// quoteIdent validates name and returns it double-quoted.
func quoteIdent(name string) (string, error) {
	if !domain.IsIdentifier(name) {
		return "", fmt.Errorf("%w: identifier %q", domain.ErrInvalidInput, name)
	}
	return `"` + name + `"`, nil
}

// buildCreate renders a CREATE TABLE statement.
func buildCreate(table string, columns []domain.Column) (string, error) {
	qt, err := quoteIdent(table)
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("%w: table %s has no columns", domain.ErrInvalidInput, table)
	}

	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		qc, err := quoteIdent(col.Name)
		if err != nil {
			return "", err
		}
		def := qc
		if col.Type != "" {
			if !col.Type.IsValid() {
				return "", fmt.Errorf("%w: column type %q", domain.ErrInvalidInput, col.Type)
			}
			def += " " + string(col.Type)
		}
		if col.NotNull {
			def += " NOT NULL"
		}
		if col.Unique {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}

	return "CREATE TABLE " + qt + " (" + strings.Join(defs, ", ") + ")", nil
}

// buildWhere renders the WHERE clause for constraints, including the leading
// keyword, or "" when there are none.
//
// The joiner of each term is written after it, so the joiner of the final
// term never appears.
func buildWhere(constraints []domain.Constraint) (string, []any, error) {
	if len(constraints) == 0 {
		return "", nil, nil
	}

	var b strings.Builder
	args := make([]any, 0, len(constraints))
	b.WriteString(" WHERE ")
	for i, c := range constraints {
		qc, err := quoteIdent(c.Column)
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			joiner := constraints[i-1].Joiner.Normalize()
			if !joiner.IsValid() {
				return "", nil, fmt.Errorf("%w: joiner %q", domain.ErrInvalidInput, constraints[i-1].Joiner)
			}
			b.WriteString(" " + string(joiner) + " ")
		}
		b.WriteString(qc + " = ?")
		args = append(args, c.Value)
	}
	return b.String(), args, nil
}

// buildSelect renders a SELECT for q.
func buildSelect(q domain.Query) (string, []any, error) {
	qt, err := quoteIdent(q.Table)
	if err != nil {
		return "", nil, err
	}

	cols := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			if quoted[i], err = quoteIdent(c); err != nil {
				return "", nil, err
			}
		}
		cols = strings.Join(quoted, ", ")
	}

	where, args, err := buildWhere(q.Constraints)
	if err != nil {
		return "", nil, err
	}

	query := "SELECT " + cols + " FROM " + qt + where

	if len(q.Order) > 0 {
		terms := make([]string, len(q.Order))
		for i, o := range q.Order {
			qc, err := quoteIdent(o.Column)
			if err != nil {
				return "", nil, err
			}
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			terms[i] = qc + " " + dir
		}
		query += " ORDER BY " + strings.Join(terms, ", ")
	}

	if q.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(q.Limit)
	}

	return query, args, nil
}

// sortedColumns returns the row's columns in a stable order.
func sortedColumns(row domain.Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// buildInsert renders an INSERT for row.
func buildInsert(table string, row domain.Row) (string, []any, error) {
	qt, err := quoteIdent(table)
	if err != nil {
		return "", nil, err
	}
	if len(row) == 0 {
		return "", nil, fmt.Errorf("%w: empty row", domain.ErrInvalidInput)
	}

	cols := sortedColumns(row)
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		if quoted[i], err = quoteIdent(c); err != nil {
			return "", nil, err
		}
		marks[i] = "?"
		args[i] = row[c]
	}

	query := "INSERT INTO " + qt + " (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
	return query, args, nil
}

// buildUpdate renders an UPDATE setting row's columns.
func buildUpdate(table string, row domain.Row, constraints []domain.Constraint) (string, []any, error) {
	qt, err := quoteIdent(table)
	if err != nil {
		return "", nil, err
	}
	if len(row) == 0 {
		return "", nil, fmt.Errorf("%w: empty row", domain.ErrInvalidInput)
	}

	cols := sortedColumns(row)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(constraints))
	for i, c := range cols {
		qc, err := quoteIdent(c)
		if err != nil {
			return "", nil, err
		}
		sets[i] = qc + " = ?"
		args = append(args, row[c])
	}

	where, whereArgs, err := buildWhere(constraints)
	if err != nil {
		return "", nil, err
	}
	args = append(args, whereArgs...)

	return "UPDATE " + qt + " SET " + strings.Join(sets, ", ") + where, args, nil
}

// buildDelete renders a DELETE.
func buildDelete(table string, constraints []domain.Constraint) (string, []any, error) {
	qt, err := quoteIdent(table)
	if err != nil {
		return "", nil, err
	}
	where, args, err := buildWhere(constraints)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + qt + where, args, nil
}

// buildCount renders a SELECT COUNT(*).
func buildCount(table string, constraints []domain.Constraint) (string, []any, error) {
	qt, err := quoteIdent(table)
	if err != nil {
		return "", nil, err
	}
	where, args, err := buildWhere(constraints)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + qt + where, args, nil
}

// buildExists renders a SELECT EXISTS(...).
func buildExists(table string, constraints []domain.Constraint) (string, []any, error) {
	qt, err := quoteIdent(table)
	if err != nil {
		return "", nil, err
	}
	where, args, err := buildWhere(constraints)
	if err != nil {
		return "", nil, err
	}
	return "SELECT EXISTS(SELECT 1 FROM " + qt + where + ")", args, nil
}
