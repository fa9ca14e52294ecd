package querybuilder

import (
	"fmt"
	"strings"
)

// QueryBuilder assembles parameterized SQL one clause at a time. Queries are
// emitted with ? placeholders; callers on postgres rebind them through sqlx.
type QueryBuilder interface {
	Select(cols ...string) QueryBuilder
	From(table string) QueryBuilder

	Insert(cols ...string) QueryBuilder
	Into(table string) QueryBuilder
	Values(values ...interface{}) QueryBuilder
	OnConflict(cols ...string) QueryBuilder
	SetExclude(cols ...string) QueryBuilder

	Where(clause string, args ...interface{}) QueryBuilder
	And(clause string, args ...interface{}) QueryBuilder
	Or(clause string, args ...interface{}) QueryBuilder
	OrderBy(col string, asc bool) QueryBuilder

	Build() (string, []interface{})
}

type queryBuilder struct {
	schema      string
	table       string
	cols        []string
	values      [][]interface{}
	conflictOn  []string
	excludeCols []string
	conditions  []condition
	orderBy     []string
	isInsert    bool
}

// NewQueryBuilder creates a builder scoped to a schema.
func NewQueryBuilder(schema string) QueryBuilder {
	return &queryBuilder{schema: schema}
}

func (q *queryBuilder) Select(cols ...string) QueryBuilder {
	q.cols = append(q.cols, cols...)
	return q
}

func (q *queryBuilder) From(table string) QueryBuilder {
	q.table = table
	return q
}

func (q *queryBuilder) Insert(cols ...string) QueryBuilder {
	q.cols = cols
	q.isInsert = true
	return q
}

func (q *queryBuilder) Into(table string) QueryBuilder {
	q.table = table
	return q
}

// Values adds one row. Call it once per row for a multi-row insert.
func (q *queryBuilder) Values(values ...interface{}) QueryBuilder {
	q.values = append(q.values, values)
	return q
}

// OnConflict names the conflict target columns. Without SetExclude the
// insert renders DO NOTHING.
func (q *queryBuilder) OnConflict(cols ...string) QueryBuilder {
	q.conflictOn = cols
	return q
}

// SetExclude updates the named columns from EXCLUDED on conflict.
func (q *queryBuilder) SetExclude(cols ...string) QueryBuilder {
	q.excludeCols = cols
	return q
}

func (q *queryBuilder) Where(clause string, args ...interface{}) QueryBuilder {
	q.conditions = append(q.conditions, condition{joiner: condAnd, clause: clause, args: args})
	return q
}

func (q *queryBuilder) And(clause string, args ...interface{}) QueryBuilder {
	q.conditions = append(q.conditions, condition{joiner: condAnd, clause: clause, args: args})
	return q
}

func (q *queryBuilder) Or(clause string, args ...interface{}) QueryBuilder {
	q.conditions = append(q.conditions, condition{joiner: condOr, clause: clause, args: args})
	return q
}

func (q *queryBuilder) OrderBy(col string, asc bool) QueryBuilder {
	direction := "ASC"
	if !asc {
		direction = "DESC"
	}
	q.orderBy = append(q.orderBy, fmt.Sprintf("%s %s", col, direction))
	return q
}

// Build renders the accumulated query. An insert whose rows do not match the
// column list renders as ("", nil).
func (q *queryBuilder) Build() (string, []interface{}) {
	if q.isInsert {
		return q.buildInsert()
	}
	return q.buildSelect()
}

func (q *queryBuilder) buildSelect() (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM %s.%s", strings.Join(q.cols, ", "), q.schema, q.table)

	var args []interface{}
	if len(q.conditions) > 0 {
		clause, condArgs := joinConditions(q.conditions)
		query += fmt.Sprintf(" WHERE %s", clause)
		args = append(args, condArgs...)
	}
	if len(q.orderBy) > 0 {
		query += fmt.Sprintf(" ORDER BY %s", strings.Join(q.orderBy, ", "))
	}

	return query, args
}

func (q *queryBuilder) buildInsert() (string, []interface{}) {
	if len(q.cols) == 0 || len(q.values) == 0 {
		return "", nil
	}

	placeholders := make([]string, len(q.cols))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	tuple := fmt.Sprintf("(%s)", strings.Join(placeholders, ", "))

	tuples := make([]string, 0, len(q.values))
	args := make([]interface{}, 0, len(q.values)*len(q.cols))
	for _, row := range q.values {
		if len(row) != len(q.cols) {
			return "", nil
		}
		tuples = append(tuples, tuple)
		args = append(args, row...)
	}

	query := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES %s",
		q.schema, q.table, strings.Join(q.cols, ", "), strings.Join(tuples, ", "))

	if len(q.conflictOn) > 0 {
		query += fmt.Sprintf(" ON CONFLICT (%s)", strings.Join(q.conflictOn, ", "))
		if len(q.excludeCols) == 0 {
			query += " DO NOTHING"
		} else {
			sets := make([]string, len(q.excludeCols))
			for i, col := range q.excludeCols {
				sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
			}
			query += fmt.Sprintf(" DO UPDATE SET %s", strings.Join(sets, ", "))
		}
	}

	return query, args
}
