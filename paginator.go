package planpager

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// Paginator counts and pages the results of a logical plan such that LIMIT
// and OFFSET apply to distinct root entities, also when to-many collections
// are fetch joined.
//
// A Paginator works on its own copy of the plan: neither the caller's plan
// nor its parameters are modified. It is not safe for concurrent use.
type Paginator[T any] struct {
	plan     *LogicalPlan
	exec     Executor
	hydrator Hydrator[T]

	fetchJoinCollection bool
	strategy            Strategy
	logger              *slog.Logger

	countQuery *PhysicalQuery
}

func NewPaginator[T any](plan *LogicalPlan, exec Executor, hydrator Hydrator[T]) *Paginator[T] {
	return &Paginator[T]{
		plan:                plan.Clone(),
		exec:                exec,
		hydrator:            hydrator,
		fetchJoinCollection: true,
		logger:              slog.New(slog.DiscardHandler),
	}
}

// WithFetchJoinCollection tells whether the plan fetch joins collections
// whose rows must not count towards LIMIT and OFFSET. Disabling it pages
// plain rows in a single query.
func (p *Paginator[T]) WithFetchJoinCollection(enabled bool) *Paginator[T] {
	p.fetchJoinCollection = enabled
	return p
}

// WithUseOutputWalkers forces the physical (true) or logical (false) query
// rewrites instead of choosing automatically.
func (p *Paginator[T]) WithUseOutputWalkers(use bool) *Paginator[T] {
	return p.WithStrategy(lo.Ternary(use, StrategyOutputWalker, StrategyTreeWalker))
}

func (p *Paginator[T]) WithStrategy(strategy Strategy) *Paginator[T] {
	p.strategy = strategy
	p.countQuery = nil
	return p
}

func (p *Paginator[T]) WithLogger(logger *slog.Logger) *Paginator[T] {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Plan returns a copy of the plan being paginated.
func (p *Paginator[T]) Plan() *LogicalPlan {
	return p.plan.Clone()
}

// derive returns a paginator with the same settings over plan.
func (p *Paginator[T]) derive(plan *LogicalPlan) *Paginator[T] {
	ret := *p
	ret.plan = plan
	ret.countQuery = nil

	return &ret
}

// FetchJoinCollection reports whether collections are paged by root.
func (p *Paginator[T]) FetchJoinCollection() bool {
	return p.fetchJoinCollection
}

// CountQuery returns the query counting distinct roots. It is built once
// per strategy.
func (p *Paginator[T]) CountQuery() (*PhysicalQuery, error) {
	if p.countQuery != nil {
		return p.countQuery, nil
	}

	strategy, err := selectStrategy(p.strategy, p.plan, purposeCount)
	if err != nil {
		return nil, err
	}

	var (
		q       *PhysicalQuery
		dropped []ParamRef
	)
	switch strategy {
	case StrategyTreeWalker:
		var plan *LogicalPlan
		plan, dropped = countTreeWalker(p.plan)
		q, err = p.exec.Compile(plan)
	default:
		q, dropped, err = countOutputWalker(p.exec, p.plan)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot build count query: %w", err)
	}

	p.logger.Debug("count query built",
		slog.String("strategy", strategy.String()),
		slog.Any("dropped_params", paramNames(dropped)),
	)
	p.countQuery = q

	return q, nil
}

// Count returns the number of distinct root entities the plan yields,
// ignoring LIMIT and OFFSET.
func (p *Paginator[T]) Count(ctx context.Context) (int64, error) {
	q, err := p.CountQuery()
	if err != nil {
		return 0, err
	}

	rows, err := p.query(ctx, q)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	count, err := cast.ToInt64E(rows[0][0])
	if err != nil {
		return 0, fmt.Errorf("unexpected count value: %w", err)
	}

	return count, nil
}

// Iterate returns the items of the current page.
//
// With fetch joined collections and LIMIT or OFFSET set, the page of root
// identifiers is selected first and the items are loaded by identifier in a
// second query, in page order. An empty page yields an empty slice without
// the second query.
func (p *Paginator[T]) Iterate(ctx context.Context) ([]T, error) {
	if !p.pagesByRoot() {
		return p.fetch(ctx, p.plan)
	}

	ids, err := p.pageIdentifiers(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []T{}, nil
	}

	items, err := p.fetch(ctx, whereInWalker(p.plan, ids))
	if err != nil {
		return nil, err
	}

	positions := make(map[Key]int, len(ids))
	for i, id := range ids {
		key := KeyOf(id...)
		if _, ok := positions[key]; !ok {
			positions[key] = i
		}
	}
	position := func(item T) int {
		pos, ok := positions[p.hydrator.Identity(item)]
		return lo.Ternary(ok, pos, len(ids))
	}
	slices.SortStableFunc(items, func(a, b T) int {
		return cmp.Compare(position(a), position(b))
	})

	return items, nil
}

func (p *Paginator[T]) pagesByRoot() bool {
	return p.fetchJoinCollection && HasFetchJoinedToMany(p.plan) && p.plan.hasLimitOrOffset()
}

// pageIdentifiers selects the root identifiers of the current page.
func (p *Paginator[T]) pageIdentifiers(ctx context.Context) ([][]any, error) {
	strategy, err := selectStrategy(p.strategy, p.plan, purposePage)
	if err != nil {
		return nil, err
	}

	var (
		q       *PhysicalQuery
		dropped []ParamRef
	)
	switch strategy {
	case StrategyTreeWalker:
		var plan *LogicalPlan
		plan, dropped = limitSubqueryTreeWalker(p.plan)
		q, err = p.exec.Compile(plan)
	default:
		q, dropped, err = limitSubqueryOutputWalker(p.exec, p.plan)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot build identifier page query: %w", err)
	}

	p.logger.Debug("identifier page query built",
		slog.String("strategy", strategy.String()),
		slog.Any("dropped_params", paramNames(dropped)),
	)

	rows, err := p.query(ctx, q)
	if err != nil {
		return nil, err
	}

	return lo.Map(rows, func(row Row, _ int) []any {
		var id []any
		for i, c := range q.Columns {
			if !c.Hidden {
				id = append(id, row[i])
			}
		}
		return id
	}), nil
}

func (p *Paginator[T]) fetch(ctx context.Context, plan *LogicalPlan) ([]T, error) {
	q, err := p.exec.Compile(plan)
	if err != nil {
		return nil, err
	}

	rows, err := p.query(ctx, q)
	if err != nil {
		return nil, err
	}

	return p.hydrator.Hydrate(&Result{Plan: plan, Columns: q.Columns, Rows: rows})
}

func (p *Paginator[T]) query(ctx context.Context, q *PhysicalQuery) ([]Row, error) {
	if p.logger.Enabled(ctx, slog.LevelDebug) {
		sql, args, err := q.ToSQL()
		if err == nil {
			p.logger.DebugContext(ctx, "executing query", slog.String("sql", sql), slog.Int("args", len(args)))
		}
	}

	return p.exec.Query(ctx, q)
}

func paramNames(refs []ParamRef) []string {
	return lo.Map(refs, func(r ParamRef, _ int) string { return r.String() })
}
