package planpager

import (
	"fmt"
	"math"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/samber/lo"
)

// Quoter quotes a single SQL identifier.
type Quoter func(string) string

// ResultColumn describes one column of a physical query.
type ResultColumn struct {
	// Name is the output alias.
	Name string
	// Alias and Field are set for columns of an entity projection.
	Alias string
	Field string
	// Hidden columns exist for other clauses only and are not hydrated.
	Hidden bool
}

// PhysicalQuery is a compiled plan: a SELECT statement with "?"
// placeholders and the description of its result columns.
type PhysicalQuery struct {
	Builder sq.SelectBuilder
	Columns []ResultColumn
	// Params are the plan parameters the statement references.
	Params Parameters

	quote Quoter
}

// ToSQL renders the statement with "?" placeholders.
func (q *PhysicalQuery) ToSQL() (string, []any, error) {
	return q.Builder.PlaceholderFormat(sq.Question).ToSql()
}

// Quote quotes an identifier the way the statement does.
func (q *PhysicalQuery) Quote(name string) string {
	if q.quote == nil {
		return name
	}

	return q.quote(name)
}

func (q *PhysicalQuery) fieldColumn(alias, field string) (ResultColumn, bool) {
	return lo.Find(q.Columns, func(c ResultColumn) bool {
		return c.Alias == alias && c.Field == field
	})
}

func (q *PhysicalQuery) namedColumn(name string) (ResultColumn, bool) {
	return lo.Find(q.Columns, func(c ResultColumn) bool { return c.Name == name })
}

// Compiler turns logical plans into SQL. The output is dialect neutral
// except for identifier quoting.
type Compiler struct {
	quote Quoter
}

// NewCompiler returns a compiler quoting identifiers with quote. A nil
// quote leaves identifiers as they are.
func NewCompiler(quote Quoter) *Compiler {
	if quote == nil {
		quote = func(s string) string { return s }
	}

	return &Compiler{quote: quote}
}

// Compile translates plan into a physical query. Every bound parameter must
// be referenced by the plan and every referenced parameter must be bound.
func (c *Compiler) Compile(plan *LogicalPlan) (*PhysicalQuery, error) {
	st := &compileState{
		quote:  c.quote,
		params: plan.Params,
		used:   ParamSet{},
	}

	builder, columns, err := st.selectStatement(plan, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot compile %s: %w", plan, err)
	}

	err = checkParameters(plan.Params, st.used)
	if err != nil {
		return nil, err
	}

	return &PhysicalQuery{
		Builder: builder,
		Columns: columns,
		Params:  plan.Params.Clone(),
		quote:   c.quote,
	}, nil
}

func checkParameters(bound Parameters, used ParamSet) error {
	missing := lo.Filter(lo.Keys(used), func(ref ParamRef, _ int) bool {
		_, ok := bound[ref]
		return !ok
	})
	if len(missing) > 0 {
		slices.SortFunc(missing, compareParamRefs)
		return fmt.Errorf("%w: parameter '%s' is referenced but not bound", ErrParameterMismatch, missing[0])
	}

	if len(bound) != len(used) {
		return fmt.Errorf("%w: too many parameters: the query defines %d parameters and you bound %d",
			ErrParameterMismatch, len(used), len(bound))
	}

	return nil
}

type compileState struct {
	quote  Quoter
	params Parameters
	used   ParamSet
}

// scope resolves aliases of a plan and, for sub-selects, of the plans
// enclosing it.
type scope struct {
	plan   *LogicalPlan
	parent *scope
}

func (s *scope) entity(alias string) (*Entity, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if e, ok := sc.plan.entity(alias); ok {
			return e, true
		}
	}

	return nil, false
}

func (st *compileState) selectStatement(plan *LogicalPlan, parent *scope) (sq.SelectBuilder, []ResultColumn, error) {
	q := st.quote
	sc := &scope{plan: plan, parent: parent}
	b := sq.Select()

	names := map[string]int{}
	var columns []ResultColumn

	for i, pr := range plan.Projections {
		if pr.Kind == ProjectionEntity {
			entity, ok := plan.entity(pr.Alias)
			if !ok {
				return b, nil, fmt.Errorf("unknown alias '%s' in projection", pr.Alias)
			}

			for _, f := range entity.Fields {
				name := uniqueName(names, pr.Alias+"_"+f.Name)
				b = b.Column(fmt.Sprintf("%s.%s AS %s", q(pr.Alias), q(f.Column), q(name)))
				columns = append(columns, ResultColumn{Name: name, Alias: pr.Alias, Field: f.Name})
			}
			continue
		}

		sql, args, err := st.render(sc, pr.Expr)
		if err != nil {
			return b, nil, err
		}

		name := uniqueName(names, lo.Ternary(pr.Alias != "", pr.Alias, fmt.Sprintf("sclr_%d", i)))
		b = b.Column(sq.Expr(sql+" AS "+q(name), args...))
		columns = append(columns, ResultColumn{Name: name, Hidden: !pr.Materialized()})
	}

	if plan.Distinct {
		b = b.Distinct()
	}

	b = b.From(q(plan.Root.Entity.Table) + " " + q(plan.Root.Alias))

	for _, j := range plan.Joins {
		on, args, err := st.render(sc, j.On)
		if err != nil {
			return b, nil, err
		}

		keyword := lo.Ternary(j.Kind == JoinLeft, "LEFT JOIN", "INNER JOIN")
		b = b.JoinClause(fmt.Sprintf("%s %s %s ON %s", keyword, q(j.Entity.Table), q(j.Alias), on), args...)
	}

	if plan.Where != nil {
		sql, args, err := st.render(sc, plan.Where)
		if err != nil {
			return b, nil, err
		}
		b = b.Where(sq.Expr(sql, args...))
	}

	if len(plan.GroupBy) > 0 {
		groupBy, err := st.groupBy(sc, plan.GroupBy)
		if err != nil {
			return b, nil, err
		}
		b = b.GroupBy(groupBy...)
	}

	if plan.Having != nil {
		sql, args, err := st.render(sc, plan.Having)
		if err != nil {
			return b, nil, err
		}
		b = b.Having(sq.Expr(sql, args...))
	}

	for _, o := range plan.OrderBy {
		sql, args, err := st.renderOrderTerm(sc, o.Expr)
		if err != nil {
			return b, nil, err
		}
		b = b.OrderByClause(sql+" "+string(o.Direction), args...)
	}

	return applyLimit(b, plan.Limit, plan.Offset), columns, nil
}

func applyLimit(b sq.SelectBuilder, limit *int, offset int) sq.SelectBuilder {
	if limit != nil {
		b = b.Limit(uint64(*limit))
	}
	if offset > 0 {
		// OFFSET without LIMIT is not portable.
		if limit == nil {
			b = b.Limit(math.MaxInt64)
		}
		b = b.Offset(uint64(offset))
	}

	return b
}

func (st *compileState) groupBy(sc *scope, exprs []Expr) ([]string, error) {
	var ret []string
	for _, e := range exprs {
		if ref, ok := e.(EntityRef); ok {
			entity, ok := sc.entity(ref.Alias)
			if !ok {
				return nil, fmt.Errorf("unknown alias '%s' in GROUP BY", ref.Alias)
			}
			for _, f := range entity.Fields {
				ret = append(ret, st.quote(ref.Alias)+"."+st.quote(f.Column))
			}
			continue
		}

		sql, args, err := st.render(sc, e)
		if err != nil {
			return nil, err
		}
		if len(args) > 0 {
			return nil, fmt.Errorf("GROUP BY expressions cannot bind values")
		}
		ret = append(ret, sql)
	}

	return ret, nil
}

// renderOrderTerm renders a bare Ref as the projection alias, everything
// else inline.
func (st *compileState) renderOrderTerm(sc *scope, e Expr) (string, []any, error) {
	if ref, ok := e.(Ref); ok {
		if _, ok := sc.plan.projection(ref.Name); !ok {
			return "", nil, fmt.Errorf("unknown result alias '%s' in ORDER BY", ref.Name)
		}
		return st.quote(ref.Name), nil, nil
	}

	return st.render(sc, e)
}

func (st *compileState) render(sc *scope, e Expr) (string, []any, error) {
	q := st.quote

	switch n := e.(type) {
	case Column:
		entity, ok := sc.entity(n.Alias)
		if !ok {
			return "", nil, fmt.Errorf("unknown alias '%s' in path '%s'", n.Alias, n)
		}
		column, ok := entity.Column(n.Field)
		if !ok {
			return "", nil, fmt.Errorf("entity '%s' has no field '%s'", entity.Name, n.Field)
		}
		return q(n.Alias) + "." + q(column), nil, nil

	case Param:
		st.used[n.Ref] = struct{}{}
		return "?", []any{st.params[n.Ref]}, nil

	case Literal:
		if n.Value == nil {
			return "NULL", nil, nil
		}
		return "?", []any{n.Value}, nil

	case Binary:
		left, largs, err := st.renderOperand(sc, n.Op, n.Left)
		if err != nil {
			return "", nil, err
		}
		right, rargs, err := st.renderOperand(sc, n.Op, n.Right)
		if err != nil {
			return "", nil, err
		}
		return left + " " + string(n.Op) + " " + right, append(largs, rargs...), nil

	case Not:
		sql, args, err := st.render(sc, n.Expr)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", args, nil

	case IsNull:
		sql, args, err := st.renderOperand(sc, "", n.Expr)
		if err != nil {
			return "", nil, err
		}
		return sql + lo.Ternary(n.Negated, " IS NOT NULL", " IS NULL"), args, nil

	case InList:
		if len(n.List) == 0 {
			return lo.Ternary(n.Negated, "1 = 1", "1 = 0"), nil, nil
		}
		sql, args, err := st.renderOperand(sc, "", n.Expr)
		if err != nil {
			return "", nil, err
		}
		items, itemArgs, err := st.renderList(sc, n.List)
		if err != nil {
			return "", nil, err
		}
		return sql + lo.Ternary(n.Negated, " NOT IN (", " IN (") + items + ")", append(args, itemArgs...), nil

	case Func:
		if len(n.Args) == 0 {
			return n.Name + "(*)", nil, nil
		}
		items, args, err := st.renderList(sc, n.Args)
		if err != nil {
			return "", nil, err
		}
		return n.Name + "(" + lo.Ternary(n.Distinct, "DISTINCT ", "") + items + ")", args, nil

	case Case:
		var sb strings.Builder
		var args []any
		sb.WriteString("CASE")
		for _, w := range n.Whens {
			cond, condArgs, err := st.render(sc, w.Cond)
			if err != nil {
				return "", nil, err
			}
			then, thenArgs, err := st.render(sc, w.Then)
			if err != nil {
				return "", nil, err
			}
			sb.WriteString(" WHEN " + cond + " THEN " + then)
			args = append(append(args, condArgs...), thenArgs...)
		}
		if n.Else != nil {
			els, elseArgs, err := st.render(sc, n.Else)
			if err != nil {
				return "", nil, err
			}
			sb.WriteString(" ELSE " + els)
			args = append(args, elseArgs...)
		}
		sb.WriteString(" END")
		return sb.String(), args, nil

	case Subquery:
		sub, _, err := st.selectStatement(n.Plan, sc)
		if err != nil {
			return "", nil, err
		}
		sql, args, err := sub.PlaceholderFormat(sq.Question).ToSql()
		if err != nil {
			return "", nil, err
		}
		return "(" + sql + ")", args, nil

	case Ref:
		pr, ok := sc.plan.projection(n.Name)
		if !ok {
			return "", nil, fmt.Errorf("unknown result alias '%s'", n.Name)
		}
		return st.render(sc, pr.Expr)

	case EntityRef:
		entity, ok := sc.entity(n.Alias)
		if !ok {
			return "", nil, fmt.Errorf("unknown alias '%s'", n.Alias)
		}
		if len(entity.Identifier) != 1 {
			return "", nil, fmt.Errorf("entity '%s' with a composite identifier cannot be compared as a whole", entity.Name)
		}
		column, _ := entity.Column(entity.Identifier[0])
		return q(n.Alias) + "." + q(column), nil, nil

	default:
		panic(fmt.Errorf("unknown expression %T", e))
	}
}

// renderOperand renders an operand of parent, parenthesizing nested binary
// expressions. Comparisons under AND and OR bind tighter and stay bare.
func (st *compileState) renderOperand(sc *scope, parent Operator, e Expr) (string, []any, error) {
	sql, args, err := st.render(sc, e)
	if err != nil {
		return "", nil, err
	}

	if child, ok := e.(Binary); ok && !(parent.logical() && !child.Op.logical()) {
		sql = "(" + sql + ")"
	}

	return sql, args, nil
}

func (st *compileState) renderList(sc *scope, exprs []Expr) (string, []any, error) {
	parts := make([]string, 0, len(exprs))
	var args []any

	for _, e := range exprs {
		sql, itemArgs, err := st.render(sc, e)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, itemArgs...)
	}

	return strings.Join(parts, ", "), args, nil
}

func uniqueName(names map[string]int, name string) string {
	n := names[name]
	names[name] = n + 1
	if n == 0 {
		return name
	}

	return fmt.Sprintf("%s_%d", name, n)
}
