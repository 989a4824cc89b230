package planpager

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// RawCursorPager is the paging part of an API request. Embed it inline:
//
//	type ListUsersRequest struct {
//	    Paging RawCursorPager `json:",inline"`
//	}
type RawCursorPager struct {
	// Limit is the requested page size; it is normalized on decode.
	Limit int `json:"limit"`
	// StartToken is the NextPageToken of the previous page, or empty for
	// the first one.
	StartToken string `json:"startToken"`
}

// Decode returns a keyset pager. orderBy must list the same paths, in the
// same order, as the pager that issued StartToken.
func (p RawCursorPager) Decode(orderBy ...OrderBy) (*CursorPager[*DefaultCursor], error) {
	cursor, err := DecodeCursor(p.StartToken)
	if err != nil {
		return nil, err
	}

	return NewCursorPager[*DefaultCursor]().
		WithCursor(cursor).
		WithSubstitutedSort(orderBy...).
		WithLimit(p.Limit), nil
}

// DecodePseudo returns an offset pager.
func (p RawCursorPager) DecodePseudo(orderBy ...OrderBy) (*CursorPager[*PseudoCursor], error) {
	cursor, err := DecodePseudoCursor(p.StartToken)
	if err != nil {
		return nil, err
	}

	return NewCursorPager[*PseudoCursor]().
		WithCursor(cursor).
		WithSubstitutedSort(orderBy...).
		WithLimit(p.Limit), nil
}

// CursorPager moves a plan to a page: it prepends its orderings to the plan's
// ORDER BY, applies the cursor and sets LIMIT. All With* methods accept a nil
// receiver.
type CursorPager[CursorType Cursor] struct {
	// lookahead fetches one extra root to tell whether a next page exists.
	lookahead bool
	limit     int
	cursor    CursorType
	sort      Orderings
}

func NewCursorPager[CursorType Cursor]() *CursorPager[CursorType] {
	return new(CursorPager[CursorType])
}

// WithLookahead makes the page query fetch limit+1 roots; the extra one is
// trimmed by the next-page functions. Not compatible with NoLimit.
func (c *CursorPager[CursorType]) WithLookahead() *CursorPager[CursorType] {
	if c == nil {
		c = new(CursorPager[CursorType])
	}

	c.lookahead = true

	return c
}

func (c *CursorPager[CursorType]) WithUnlimited() *CursorPager[CursorType] {
	if c == nil {
		c = new(CursorPager[CursorType])
	}

	c.limit = NoLimit

	return c
}

// WithLimit sets the page size through NormalizeLimit. NoLimit is kept as is.
func (c *CursorPager[CursorType]) WithLimit(limit int) *CursorPager[CursorType] {
	if c == nil {
		c = new(CursorPager[CursorType])
	}

	if limit == NoLimit {
		return c.WithUnlimited()
	}
	c.limit = NormalizeLimit(limit)

	return c
}

func (c *CursorPager[CursorType]) WithCursor(cursor CursorType) *CursorPager[CursorType] {
	if c == nil {
		c = new(CursorPager[CursorType])
	}

	c.cursor = cursor

	return c
}

// WithSubstitutedSort replaces the pager orderings.
func (c *CursorPager[CursorType]) WithSubstitutedSort(orderBy ...OrderBy) *CursorPager[CursorType] {
	if c == nil {
		c = new(CursorPager[CursorType])
	}

	c.sort = nil

	return c.WithSort(orderBy...)
}

// WithSort appends orderings. An expression already sorted by moves to the
// end with the new direction.
func (c *CursorPager[CursorType]) WithSort(orderBy ...OrderBy) *CursorPager[CursorType] {
	if c == nil {
		c = new(CursorPager[CursorType])
	}

	for _, o := range orderBy {
		c.sort = slices.DeleteFunc(c.sort, func(processed OrderBy) bool {
			return sameExpr(processed.Expr, o.Expr)
		})
		c.sort = append(c.sort, o)
	}

	return c
}

// Paginate returns a copy of plan moved to the pager position: the pager
// orderings go first, followed by the plan's own ORDER BY terms that the
// pager does not already sort by; then the cursor and the limit are applied.
func (c *CursorPager[CursorType]) Paginate(plan *LogicalPlan) (*LogicalPlan, error) {
	err := c.validate()
	if err != nil {
		return nil, fmt.Errorf("cannot paginate: %w", err)
	}

	ret := plan.Clone()

	orderBy := c.sort.clone()
	for _, o := range ret.OrderBy {
		if !slices.ContainsFunc(orderBy, func(processed OrderBy) bool { return sameExpr(processed.Expr, o.Expr) }) {
			orderBy = append(orderBy, o)
		}
	}
	ret.OrderBy = orderBy

	ret = c.cursor.Apply(ret)

	if c.limit != NoLimit {
		ret.SetMaxResults(lo.Ternary(c.lookahead, c.limit+1, c.limit))
	}

	return ret, nil
}

// GetLimit returns the page size, NoLimit included.
func (c *CursorPager[CursorType]) GetLimit() int {
	if c == nil {
		return 0
	}

	return c.limit
}

func (c *CursorPager[_]) validate() error {
	if c == nil {
		return fmt.Errorf("cursor pager is nil")
	}

	if c.limit == NoLimit && c.lookahead {
		return fmt.Errorf("cannot apply lookahead to unlimited paging")
	}

	err := c.sort.validate()
	if err != nil {
		return err
	}

	return c.cursor.validate(c.sort)
}

// IsLastPage reports whether items, fetched with pager, end the dataset:
// fewer roots than the limit came back, or with lookahead the extra root did
// not.
func IsLastPage[CursorType Cursor, T any](pager *CursorPager[CursorType], items []T) bool {
	return len(items) < pager.limit ||
		(pager.lookahead && len(items) <= pager.limit)
}

// TrimResultSet drops the lookahead root from a page that is not the last.
func TrimResultSet[CursorType Cursor, T any](pager *CursorPager[CursorType], items []T) []T {
	if pager.lookahead {
		items = items[:len(items)-1]
	}

	return items
}
