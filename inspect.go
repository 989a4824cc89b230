package planpager

import "github.com/samber/lo"

// HasGroupByOrHaving reports whether the plan aggregates.
func HasGroupByOrHaving(plan *LogicalPlan) bool {
	return len(plan.GroupBy) > 0 || plan.Having != nil
}

// HasFetchJoinedToMany reports whether any fetch join fans out the root
// rows.
func HasFetchJoinedToMany(plan *LogicalPlan) bool {
	return lo.ContainsBy(plan.Joins, func(j Join) bool {
		return j.Fetch && j.Cardinality == ToMany
	})
}

// OrderByReferencesOnlyRoot reports whether every ORDER BY term is a bare
// path on the root alias. Computed expressions, select-alias references and
// paths through join aliases all make it false.
func OrderByReferencesOnlyRoot(plan *LogicalPlan) bool {
	return lo.EveryBy(plan.OrderBy, func(o OrderBy) bool {
		col, ok := o.Expr.(Column)
		return ok && col.Alias == plan.Root.Alias
	})
}

// UsedParameters collects the parameters referenced by the given plan
// fragments, including the ones inside sub-selects.
func UsedParameters(fragments ...Expr) ParamSet {
	used := ParamSet{}
	for _, fragment := range fragments {
		Walk(fragment, func(e Expr) bool {
			if p, ok := e.(Param); ok {
				used[p.Ref] = struct{}{}
			}
			return true
		})
	}

	return used
}

// RootIdentifiers returns the identifier paths of the root entity.
func RootIdentifiers(plan *LogicalPlan) []Column {
	return lo.Map(plan.Root.Entity.Identifier, func(field string, _ int) Column {
		return Column{Alias: plan.Root.Alias, Field: field}
	})
}
