// Package database builds the parameterized SELECT statements behind the
// list endpoints with optional filters. Identifiers are sanitized before
// interpolation; every value travels as a positional parameter.
package database

import (
	"fmt"
	"strings"
)

// ConditionType is a SQL comparison operator.
type ConditionType string

const (
	Equal    ConditionType = "="
	NotEqual ConditionType = "!="
	In       ConditionType = "IN"
)

// Condition is a single WHERE predicate on a column.
type Condition struct {
	Field string
	Type  ConditionType
	Value any
}

// WhereCond builds a column comparison condition.
func WhereCond(field string, condType ConditionType, value any) Condition {
	return Condition{Field: field, Type: condType, Value: value}
}

// ListQueryOptions accumulates the parts of a list query.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	Conditions []Condition
	OrderBy    string
	OrderDir   string
	Limit      int
	Offset     int
}

// ListQueryOption mutates ListQueryOptions.
type ListQueryOption func(*ListQueryOptions)

// NewListQueryOptions builds options for a query against table.
func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	options := &ListQueryOptions{
		Table:  table,
		Limit:  -1,
		Offset: -1,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithColumns selects specific columns instead of *.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Columns = append(o.Columns, cols...)
	}
}

// WithCondition adds a WHERE predicate; predicates are AND-joined.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Conditions = append(o.Conditions, cond)
	}
}

// WithOrderBy sets the ordering column and direction.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = column
		o.OrderDir = direction
	}
}

// WithLimit sets the LIMIT clause. Negative values omit it.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Limit = limit
	}
}

// WithOffset sets the OFFSET clause. Negative values omit it.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Offset = offset
	}
}

// sanitizeIdentifier strips everything but the characters legal in an
// unquoted Postgres identifier.
func sanitizeIdentifier(ident string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return -1
	}, ident)
}

// BuildListQuery renders the SELECT statement and its ordered parameters.
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	var sb strings.Builder

	sb.WriteString("SELECT ")
	sb.WriteString(columnClause(options.Columns))
	sb.WriteString(" FROM ")
	sb.WriteString(sanitizeIdentifier(options.Table))

	where, args := whereClause(options.Conditions)
	sb.WriteString(where)

	if options.OrderBy != "" {
		dir := "ASC"
		if strings.EqualFold(options.OrderDir, "DESC") {
			dir = "DESC"
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(sanitizeIdentifier(options.OrderBy))
		sb.WriteString(" ")
		sb.WriteString(dir)
	}

	if options.Limit >= 0 {
		args = append(args, options.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if options.Offset >= 0 {
		args = append(args, options.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	return sb.String(), args
}

func columnClause(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	sanitized := make([]string, 0, len(columns))
	for _, col := range columns {
		if s := sanitizeIdentifier(col); s != "" {
			sanitized = append(sanitized, s)
		}
	}
	if len(sanitized) == 0 {
		return "*"
	}
	return strings.Join(sanitized, ", ")
}

func whereClause(conditions []Condition) (string, []any) {
	if len(conditions) == 0 {
		return "", nil
	}

	var args []any
	clauses := make([]string, 0, len(conditions))
	for _, cond := range conditions {
		field := sanitizeIdentifier(cond.Field)
		switch cond.Type {
		case In:
			args = append(args, cond.Value)
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", field, len(args)))
		case Equal, NotEqual:
			args = append(args, cond.Value)
			clauses = append(clauses, fmt.Sprintf("%s %s $%d", field, cond.Type, len(args)))
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
