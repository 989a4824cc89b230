package planpager

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/samber/lo"
)

func orderAlias(i int) string {
	return fmt.Sprintf("dctrn_ord_%d", i)
}

// limitSubqueryTreeWalker derives the page-of-identifiers plan:
//
//	SELECT DISTINCT root.id, <order terms> ... ORDER BY ... LIMIT ... OFFSET ...
//
// Identifiers are scalar projections, ordering terms hidden ones, so only
// the identifiers are materialized.
func limitSubqueryTreeWalker(plan *LogicalPlan) (*LogicalPlan, []ParamRef) {
	ret := plan.Clone()
	root := ret.Root.Alias

	projections := lo.Map(RootIdentifiers(ret), func(c Column, _ int) Projection {
		return SelectScalar(c, root+"_"+c.Field)
	})

	orderBy := make(Orderings, 0, len(ret.OrderBy))
	for i, o := range ret.OrderBy {
		switch e := o.Expr.(type) {
		case Column:
			if e.Alias == root && ret.Root.Entity.isIdentifier(e.Field) {
				orderBy = append(orderBy, OrderBy{Expr: Ref{Name: root + "_" + e.Field}, Direction: o.Direction})
				continue
			}
		case Ref:
			if pr, ok := plan.projection(e.Name); ok {
				projections = append(projections, SelectHidden(pr.Expr, e.Name))
				orderBy = append(orderBy, o)
				continue
			}
		}

		projections = append(projections, SelectHidden(o.Expr, orderAlias(i)))
		orderBy = append(orderBy, OrderBy{Expr: Ref{Name: orderAlias(i)}, Direction: o.Direction})
	}

	ret.Projections = projections
	ret.Joins = lo.Map(ret.Joins, func(j Join, _ int) Join {
		j.Fetch = false
		return j
	})
	ret.Distinct = true
	ret.OrderBy = orderBy

	dropped := ret.restrictParams()

	return ret, dropped
}

// limitSubqueryOutputWalker wraps the physical query of plan so that LIMIT
// and OFFSET count distinct roots instead of rows. Without ORDER BY:
//
//	SELECT DISTINCT <ids> FROM (<query>) dctrn_result LIMIT ... OFFSET ...
//
// With ORDER BY, the first row of every root decides its position:
//
//	SELECT <ids> FROM (
//	    SELECT dctrn_result_inner.*, ROW_NUMBER() OVER (ORDER BY ...) AS dctrn_rownum
//	    FROM (<query>) dctrn_result_inner
//	) dctrn_result
//	GROUP BY <ids> ORDER BY MIN(dctrn_rownum) LIMIT ... OFFSET ...
//
// ORDER BY terms that are not result columns yet are added to the inner
// query as hidden projections.
func limitSubqueryOutputWalker(exec Executor, plan *LogicalPlan) (*PhysicalQuery, []ParamRef, error) {
	innerPlan := plan.Clone()

	if !innerPlan.projects(innerPlan.Root.Alias) && HasGroupByOrHaving(innerPlan) {
		return nil, nil, fmt.Errorf("cannot paginate grouped query that does not select root entity '%s'", innerPlan.Root.Alias)
	}
	ensureRootIdentifiers(innerPlan)

	type orderColumn struct {
		// name is the result column, or empty until the plan is compiled.
		name  string
		path  Column
		order OrderBy
	}
	orderColumns := make([]orderColumn, 0, len(plan.OrderBy))
	for i, o := range innerPlan.OrderBy {
		switch e := o.Expr.(type) {
		case Ref:
			orderColumns = append(orderColumns, orderColumn{name: e.Name, order: o})
			continue
		case Column:
			if innerPlan.projects(e.Alias) {
				orderColumns = append(orderColumns, orderColumn{path: e, order: o})
				continue
			}
		}

		innerPlan.Projections = append(innerPlan.Projections, SelectHidden(o.Expr, orderAlias(i)))
		orderColumns = append(orderColumns, orderColumn{name: orderAlias(i), order: o})
	}

	innerPlan.OrderBy = nil
	innerPlan.Limit = nil
	innerPlan.Offset = 0
	dropped := innerPlan.restrictParams()

	inner, err := exec.Compile(innerPlan)
	if err != nil {
		return nil, nil, err
	}

	ids, err := identifierColumns(inner, innerPlan)
	if err != nil {
		return nil, nil, err
	}
	quotedIDs := quoteColumns(inner, ids)

	var outer sq.SelectBuilder
	if len(orderColumns) == 0 {
		outer = sq.Select(quotedIDs...).
			Distinct().
			FromSelect(inner.Builder, resultAlias)
	} else {
		terms := make([]string, 0, len(orderColumns))
		for _, oc := range orderColumns {
			if oc.name == "" {
				c, ok := inner.fieldColumn(oc.path.Alias, oc.path.Field)
				if !ok {
					return nil, nil, fmt.Errorf("cannot find result column for ordering path '%s'", oc.path)
				}
				oc.name = c.Name
			}
			terms = append(terms, inner.Quote(oc.name)+" "+string(oc.order.Direction))
		}

		middle := sq.Select(
			resultInnerAlias+".*",
			fmt.Sprintf("ROW_NUMBER() OVER (ORDER BY %s) AS %s", strings.Join(terms, ", "), inner.Quote(rowNumberAlias)),
		).FromSelect(inner.Builder, resultInnerAlias)

		outer = sq.Select(quotedIDs...).
			FromSelect(middle, resultAlias).
			GroupBy(quotedIDs...).
			OrderBy("MIN(" + inner.Quote(rowNumberAlias) + ")")
	}

	outer = applyLimit(outer, plan.Limit, plan.Offset)

	return &PhysicalQuery{
		Builder: outer,
		Columns: ids,
		Params:  inner.Params,
		quote:   inner.quote,
	}, dropped, nil
}
