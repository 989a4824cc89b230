package planpager

import "github.com/samber/lo"

// whereInWalker restricts plan to the roots identified by ids. LIMIT and
// OFFSET are gone since the page is already decided; ORDER BY stays so that
// fetch joined collections keep their order.
//
// Single-column identifiers become "root.id IN (...)", composite ones an OR
// of per-root equalities.
func whereInWalker(plan *LogicalPlan, ids [][]any) *LogicalPlan {
	ret := plan.Clone()
	columns := RootIdentifiers(ret)

	var cond Expr
	if len(columns) == 1 || len(ids) == 0 {
		cond = InList{
			Expr: columns[0],
			List: lo.Map(ids, func(id []any, _ int) Expr { return Lit(id[0]) }),
		}
	} else {
		dnf := lo.Map(ids, func(id []any, _ int) tDisjunct {
			return lo.Map(columns, func(c Column, i int) tConjunct {
				return tConjunct{Column: c, Value: id[i], Operator: OperatorEq}
			})
		})
		cond = tDNF(dnf).toExpr()
	}

	ret.Where = And(ret.Where, cond)
	ret.Limit = nil
	ret.Offset = 0

	return ret
}
