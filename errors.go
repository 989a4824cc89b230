package planpager

import "errors"

var (
	// ErrUnsupportedCountShape is returned when the tree walker strategy has
	// to count a plan it cannot count correctly.
	ErrUnsupportedCountShape = errors.New(
		"planpager: cannot count query that uses a GROUP BY or HAVING clause. Use the output walkers for pagination",
	)

	// ErrUnsupportedPagingShape is returned when the tree walker strategy has
	// to select a page of distinct identifiers it cannot order correctly.
	ErrUnsupportedPagingShape = errors.New(
		"planpager: cannot select distinct identifiers from query with LIMIT and ORDER BY on a column from a fetch joined to-many association. Use output walkers",
	)

	// ErrUnsupportedCompositeCount is returned when the tree walker strategy
	// has to count roots whose identifier spans several columns.
	ErrUnsupportedCompositeCount = errors.New(
		"planpager: cannot count distinct roots with a composite identifier in a single COUNT(DISTINCT). Use the output walkers for pagination",
	)

	// ErrCustomRewriteConflict accompanies one of the shape errors above when
	// the plan carries a custom rewrite and therefore cannot fall back to the
	// output walkers.
	ErrCustomRewriteConflict = errors.New("planpager: plan carries a custom output rewrite")

	// ErrParameterMismatch is returned by the compiler when bound and
	// referenced parameters differ.
	ErrParameterMismatch = errors.New("planpager: parameter mismatch")
)
