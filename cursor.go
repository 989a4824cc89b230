package planpager

import (
	"context"
	"encoding/base64"
	"fmt"
)

var _encoder = base64.RawURLEncoding

// Cursor is an opaque position within an ordered dataset.
type Cursor interface {
	String() string
	IsEmpty() bool
	// Apply moves plan to the cursor position. The plan is modified in
	// place and returned.
	Apply(plan *LogicalPlan) *LogicalPlan
	validate(orderings Orderings) error
}

// PaginationResult is a generic paginated result container.
type PaginationResult[T any, CursorType Cursor] struct {
	// Items result elements.
	Items []T
	// Total number of elements.
	Total int64
	// AppliedLimit effective limit used for the query.
	AppliedLimit int
	// NextPageToken token for the next page.
	NextPageToken CursorType
}

// NextPageFunc trims a fetched page and builds the cursor of the next one.
// NextPagePseudoCursor fits as is; NextPageCursor needs its getters bound.
type NextPageFunc[T any, CursorType Cursor] func(pager *CursorPager[CursorType], items []T) ([]T, CursorType, error)

// FetchPage loads the page pager points to from the plan of paginator,
// together with the total number of roots the plan yields.
func FetchPage[T any, CursorType Cursor](
	ctx context.Context,
	pager *CursorPager[CursorType],
	paginator *Paginator[T],
	next NextPageFunc[T, CursorType],
) (*PaginationResult[T, CursorType], error) {
	total, err := paginator.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot count: %w", err)
	}

	plan, err := pager.Paginate(paginator.Plan())
	if err != nil {
		return nil, err
	}

	items, err := paginator.derive(plan).Iterate(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch page: %w", err)
	}

	items, cursor, err := next(pager, items)
	if err != nil {
		return nil, err
	}

	return &PaginationResult[T, CursorType]{
		Items:         items,
		Total:         total,
		AppliedLimit:  pager.GetLimit(),
		NextPageToken: cursor,
	}, nil
}
