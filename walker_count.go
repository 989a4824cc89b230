package planpager

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/samber/lo"
)

const (
	countAlias       = "dctrn_count"
	resultAlias      = "dctrn_result"
	resultInnerAlias = "dctrn_result_inner"
	tableAlias       = "dctrn_table"
	rowNumberAlias   = "dctrn_rownum"
)

// countTreeWalker derives "SELECT COUNT(DISTINCT root.id)" from plan. The
// join graph and WHERE stay, everything that does not affect the number of
// distinct roots goes. It returns the references of the parameters the
// derived plan no longer needs.
func countTreeWalker(plan *LogicalPlan) (*LogicalPlan, []ParamRef) {
	ret := plan.Clone()

	ret.Projections = []Projection{
		SelectScalar(CountDistinct(RootIdentifiers(ret)[0]), countAlias),
	}
	ret.Joins = lo.Map(ret.Joins, func(j Join, _ int) Join {
		j.Fetch = false
		return j
	})
	ret.Distinct = false
	ret.OrderBy = nil
	ret.Limit = nil
	ret.Offset = 0

	dropped := ret.restrictParams()

	return ret, dropped
}

// countOutputWalker wraps the physical query of plan:
//
//	SELECT COUNT(*) FROM (SELECT DISTINCT <ids> FROM (<query>) dctrn_result) dctrn_table
//
// A grouped query already yields one row per group and is counted as is:
//
//	SELECT COUNT(*) FROM (<query>) dctrn_table
//
// The inner query loses ORDER BY, LIMIT and OFFSET only.
func countOutputWalker(exec Executor, plan *LogicalPlan) (*PhysicalQuery, []ParamRef, error) {
	innerPlan := plan.Clone()
	innerPlan.OrderBy = nil
	innerPlan.Limit = nil
	innerPlan.Offset = 0

	grouped := HasGroupByOrHaving(innerPlan)
	if !grouped {
		ensureRootIdentifiers(innerPlan)
	}
	dropped := innerPlan.restrictParams()

	inner, err := exec.Compile(innerPlan)
	if err != nil {
		return nil, nil, err
	}

	counted := inner.Builder
	if !grouped {
		ids, err := identifierColumns(inner, innerPlan)
		if err != nil {
			return nil, nil, err
		}

		counted = sq.Select(quoteColumns(inner, ids)...).
			Distinct().
			FromSelect(inner.Builder, resultAlias)
	}

	outer := sq.Select("COUNT(*) AS " + inner.Quote(countAlias)).
		FromSelect(counted, tableAlias)

	return &PhysicalQuery{
		Builder: outer,
		Columns: []ResultColumn{{Name: countAlias}},
		Params:  inner.Params,
		quote:   inner.quote,
	}, dropped, nil
}

// ensureRootIdentifiers makes sure the root identifier reaches the result of
// plan.
func ensureRootIdentifiers(plan *LogicalPlan) {
	if plan.projects(plan.Root.Alias) {
		return
	}

	for i, id := range RootIdentifiers(plan) {
		plan.Projections = append(plan.Projections, SelectHidden(id, rootIdentifierAlias(i)))
	}
}

func rootIdentifierAlias(i int) string {
	return fmt.Sprintf("dctrn_id_%d", i)
}

// identifierColumns finds the result columns holding the root identifier.
func identifierColumns(q *PhysicalQuery, plan *LogicalPlan) ([]ResultColumn, error) {
	root := plan.Root.Alias

	ret := make([]ResultColumn, 0, len(plan.Root.Entity.Identifier))
	for i, field := range plan.Root.Entity.Identifier {
		c, ok := q.fieldColumn(root, field)
		if !ok {
			c, ok = q.namedColumn(rootIdentifierAlias(i))
		}
		if !ok {
			return nil, fmt.Errorf("not all identifier properties of '%s' can be found in the result", root)
		}

		ret = append(ret, ResultColumn{Name: c.Name, Alias: root, Field: field})
	}

	return ret, nil
}

func quoteColumns(q *PhysicalQuery, columns []ResultColumn) []string {
	return lo.Map(columns, func(c ResultColumn, _ int) string { return q.Quote(c.Name) })
}
