// Package database provides a small SQL builder for list queries with
// equality/range/substring filters, ordering, and pagination. Identifiers are
// sanitized with pgx; values always travel as bound parameters.
package database

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
)

type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	GreaterThan        ConditionType = ">"
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	GreaterThanOrEqual ConditionType = ">="
	ILike              ConditionType = "ILIKE"
	In                 ConditionType = "IN"

	defaultLimit  = -1
	defaultOffset = -1
)

// Condition is a single WHERE predicate on a column.
type Condition struct {
	Field string
	Type  ConditionType
	Value any
}

// WhereCond constructs a condition on a column.
func WhereCond(field string, condType ConditionType, value any) Condition {
	return Condition{Field: field, Type: condType, Value: value}
}

// ListQueryOptions describes a list query over a single table.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	CountOnly  bool
	Conditions []Condition
	OrderBy    string
	OrderDir   string
	Limit      int
	Offset     int
}

type ListQueryOption func(*ListQueryOptions)

// NewListQueryOptions builds options for the given table with defaults that
// emit no LIMIT/OFFSET unless explicitly set.
func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	options := &ListQueryOptions{
		Table:  table,
		Limit:  defaultLimit,
		Offset: defaultOffset,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithColumns sets the columns to select.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) { o.Columns = cols }
}

// WithCondition adds a single condition.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = append(o.Conditions, cond) }
}

// WithConditions sets the entire list of conditions.
func WithConditions(conds ...Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = conds }
}

// WithOrderBy sets the ordering column and direction.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = column
		o.OrderDir = direction
	}
}

// WithLimit sets the limit. Accepts 0.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset sets the offset. Accepts 0.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

// WithCountOnly sets the query to count only.
func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) { o.CountOnly = true }
}

func sanitizeIdentifier(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

// BuildListQuery constructs a SQL query string and bound arguments from the
// options. Conditions with empty fields or empty IN-value slices are skipped
// rather than producing invalid SQL.
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	if options == nil {
		return "", nil
	}

	var query strings.Builder
	query.WriteString(buildSelectClause(options))
	query.WriteString("FROM ")
	query.WriteString(sanitizeIdentifier(options.Table))

	whereClause, args, paramCount := buildWhereClause(options.Conditions, 1)
	if whereClause != "" {
		query.WriteString(" ")
		query.WriteString(whereClause)
	}

	if options.CountOnly {
		return query.String(), args
	}

	if options.OrderBy != "" {
		query.WriteString(" ORDER BY ")
		query.WriteString(sanitizeIdentifier(options.OrderBy))
		dir := strings.ToUpper(options.OrderDir)
		if dir == "ASC" || dir == "DESC" {
			query.WriteString(" ")
			query.WriteString(dir)
		}
	}
	if options.Limit != defaultLimit {
		query.WriteString(fmt.Sprintf(" LIMIT $%d", paramCount))
		args = append(args, options.Limit)
		paramCount++
	}
	if options.Offset != defaultOffset {
		query.WriteString(fmt.Sprintf(" OFFSET $%d", paramCount))
		args = append(args, options.Offset)
	}

	return query.String(), args
}

func buildSelectClause(options *ListQueryOptions) string {
	if options.CountOnly {
		return "SELECT COUNT(*) "
	}
	if len(options.Columns) == 0 {
		return "SELECT * "
	}
	cols := make([]string, len(options.Columns))
	for i, col := range options.Columns {
		cols[i] = sanitizeIdentifier(col)
	}
	return fmt.Sprintf("SELECT %s ", strings.Join(cols, ", "))
}

func buildWhereClause(inputConditions []Condition, startParamIndex int) (string, []any, int) {
	conditions := make([]string, 0, len(inputConditions))
	args := []any{}
	paramCount := startParamIndex

	for _, cond := range inputConditions {
		if cond.Field == "" {
			continue
		}
		field := sanitizeIdentifier(cond.Field)

		if cond.Type == In {
			clause, inArgs, next := buildInCondition(cond, field, paramCount)
			if clause == "" {
				continue
			}
			conditions = append(conditions, clause)
			args = append(args, inArgs...)
			paramCount = next
			continue
		}

		conditions = append(conditions, fmt.Sprintf("%s %s $%d", field, cond.Type, paramCount))
		args = append(args, cond.Value)
		paramCount++
	}

	if len(conditions) == 0 {
		return "", args, paramCount
	}
	return "WHERE " + strings.Join(conditions, " AND "), args, paramCount
}

func buildInCondition(cond Condition, field string, paramCount int) (string, []any, int) {
	// Accept any slice type via reflection
	rv := reflect.ValueOf(cond.Value)
	if rv.Kind() != reflect.Slice || rv.Len() == 0 {
		return "", nil, paramCount
	}

	placeholders := make([]string, rv.Len())
	args := make([]any, rv.Len())
	for i := range rv.Len() {
		placeholders[i] = fmt.Sprintf("$%d", paramCount)
		args[i] = rv.Index(i).Interface()
		paramCount++
	}
	return fmt.Sprintf("%s IN (%s)", field, strings.Join(placeholders, ", ")), args, paramCount
}
