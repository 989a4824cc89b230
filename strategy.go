package planpager

import "fmt"

// Strategy selects how pagination queries are derived from a plan.
type Strategy int

const (
	// StrategyAuto uses the tree walkers when they can handle the plan and
	// the output walkers otherwise. Plans with CustomRewrite never fall back.
	StrategyAuto Strategy = iota
	// StrategyOutputWalker rewrites the compiled physical query. It handles
	// every plan shape.
	StrategyOutputWalker
	// StrategyTreeWalker rewrites the logical plan only. It is cheaper but
	// restricted to simple shapes.
	StrategyTreeWalker
)

func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyOutputWalker:
		return "output-walker"
	case StrategyTreeWalker:
		return "tree-walker"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

type purpose int

const (
	purposeCount purpose = iota
	purposePage
)

func (p purpose) String() string {
	if p == purposeCount {
		return "count"
	}

	return "page"
}

// selectStrategy resolves requested into a terminal strategy for plan. It
// runs before any query is built, so shape errors never surface mid-way.
func selectStrategy(requested Strategy, plan *LogicalPlan, purpose purpose) (Strategy, error) {
	if requested == StrategyOutputWalker {
		return StrategyOutputWalker, nil
	}

	err := treeWalkerSupports(plan, purpose)
	switch {
	case err == nil:
		return StrategyTreeWalker, nil
	case plan.CustomRewrite:
		return 0, fmt.Errorf("%w: %w", ErrCustomRewriteConflict, err)
	case requested == StrategyTreeWalker:
		return 0, err
	default:
		return StrategyOutputWalker, nil
	}
}

func treeWalkerSupports(plan *LogicalPlan, purpose purpose) error {
	switch purpose {
	case purposeCount:
		if HasGroupByOrHaving(plan) {
			return ErrUnsupportedCountShape
		}
		if n := len(plan.Root.Entity.Identifier); n != 1 {
			return fmt.Errorf("%w: root entity '%s' has %d identifier columns",
				ErrUnsupportedCompositeCount, plan.Root.Entity.Name, n)
		}
	case purposePage:
		if HasGroupByOrHaving(plan) {
			return fmt.Errorf("%w: query uses a GROUP BY or HAVING clause", ErrUnsupportedPagingShape)
		}
		if plan.hasLimitOrOffset() && HasFetchJoinedToMany(plan) && !OrderByReferencesOnlyRoot(plan) {
			return ErrUnsupportedPagingShape
		}
	}

	return nil
}
