package planpager

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Row is one result row, aligned with the columns of the query that
// produced it.
type Row []any

// Result is the raw outcome of running a physical query.
type Result struct {
	// Plan is the logical plan the query was compiled from.
	Plan    *LogicalPlan
	Columns []ResultColumn
	Rows    []Row
}

// Executor compiles plans and runs physical queries.
type Executor interface {
	Compile(plan *LogicalPlan) (*PhysicalQuery, error)
	Query(ctx context.Context, q *PhysicalQuery) ([]Row, error)
}

var _ Executor = (*GORMExecutor)(nil)

// GORMExecutor runs queries through a gorm connection and quotes
// identifiers with its dialect.
type GORMExecutor struct {
	db       *gorm.DB
	compiler *Compiler
}

func NewGORMExecutor(db *gorm.DB) *GORMExecutor {
	return &GORMExecutor{
		db:       db,
		compiler: NewCompiler(DialectQuoter(db.Dialector)),
	}
}

// DialectQuoter quotes identifiers the way dialector does.
func DialectQuoter(dialector gorm.Dialector) Quoter {
	return func(name string) string {
		var sb strings.Builder
		dialector.QuoteTo(&sb, name)
		return sb.String()
	}
}

func (e *GORMExecutor) Compile(plan *LogicalPlan) (*PhysicalQuery, error) {
	return e.compiler.Compile(plan)
}

func (e *GORMExecutor) Query(ctx context.Context, q *PhysicalQuery) ([]Row, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("cannot render query: %w", err)
	}

	rows, err := e.db.WithContext(ctx).Raw(sql, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(columns) != len(q.Columns) {
		return nil, fmt.Errorf("query returned %d columns, expected %d", len(columns), len(q.Columns))
	}

	var ret []Row
	for rows.Next() {
		values := make(Row, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}

		if err = rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("cannot scan row: %w", err)
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		ret = append(ret, values)
	}

	return ret, rows.Err()
}
