package planpager

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

// DefaultCursor is a keyset token: the position right after the last item of
// the previous page. An empty token means the start of the dataset.
//
// IMPORTANT:
// The token must ALWAYS include a condition on a unique path, e.g. the root
// identifier.
//
// The token is a list of conditions:
//
//	[(C1, O1, V1), (C2, O2, V2)... (Cn, On, Vn)]
type DefaultCursor struct {
	elements []CursorElement
}

func NewCursor(elements ...CursorElement) *DefaultCursor {
	return NewDefaultCursor(elements...)
}

func NewDefaultCursor(elements ...CursorElement) *DefaultCursor {
	return &DefaultCursor{
		elements: elements,
	}
}

// DecodeCursor parses a base64-encoded token into *DefaultCursor.
func DecodeCursor(b64String string) (*DefaultCursor, error) {
	if len(b64String) == 0 {
		return nil, nil
	}

	jsonData, err := _encoder.DecodeString(b64String)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 encoded cursor: %w", err)
	}

	var elems []CursorElement
	if err = json.Unmarshal(jsonData, &elems); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json encoded cursor: %w", err)
	}

	return &DefaultCursor{
		elements: elems,
	}, nil
}

// String - implements fmt.Stringer.
func (c *DefaultCursor) String() string {
	if c == nil || len(c.elements) == 0 {
		return ""
	}

	jTok, err := json.Marshal(c.elements)
	if err != nil {
		panic(fmt.Errorf("cannot marshal cursor value: %w", err))
	}

	var buf bytes.Buffer
	if err = json.Compact(&buf, jTok); err != nil {
		panic(fmt.Errorf("cannot compact cursor value: %w", err))
	}

	return _encoder.EncodeToString(buf.Bytes())
}

// IsEmpty - implements Cursor.
func (c *DefaultCursor) IsEmpty() bool {
	return c == nil || len(c.elements) == 0
}

// GetElements returns the token elements: a compressed form of the filter.
// They are expanded into the full condition by Apply and must not be used
// as a filter directly.
func (c *DefaultCursor) GetElements() []CursorElement {
	if c == nil {
		return nil
	}

	return c.elements
}

// WithElements sets the token elements explicitly.
func (c *DefaultCursor) WithElements(elements []CursorElement) *DefaultCursor {
	if c == nil {
		c = new(DefaultCursor)
	}

	c.elements = elements

	return c
}

// Apply - implements Cursor. ANDs the expanded keyset condition into WHERE.
func (c *DefaultCursor) Apply(plan *LogicalPlan) *LogicalPlan {
	return plan.AndWhere(c.Expr())
}

// Expr returns the expanded keyset condition, or nil for an empty token.
func (c *DefaultCursor) Expr() Expr {
	dnf, err := c.toDNF()
	if err != nil {
		// Elements are validated against the pager orderings beforehand.
		panic(err)
	}

	return dnf.toExpr()
}

// toDNF expands the token into a filter:
//
//	[(C1, O1, V1), (C2, O2, V2)]  ->  (C1 O1 V1) OR (C1 = V1 AND C2 O2 V2)
//
// The DNF is enough to tell where the next page starts. Values go through
// parseAnyValue since timestamps arrive as strings from JSON.
func (c *DefaultCursor) toDNF() (tDNF, error) {
	if c.IsEmpty() {
		return nil, nil
	}

	conjuncts := make([]tConjunct, 0, len(c.elements))
	for _, element := range c.elements {
		conjunct, err := element.toConjunct()
		if err != nil {
			return nil, err
		}
		conjuncts = append(conjuncts, conjunct)
	}

	dnf := make(tDNF, 0, len(conjuncts))
	for i := range conjuncts {
		previousElementsWithEqualityCondition := lo.Map(conjuncts[:i], func(item tConjunct, _ int) tConjunct {
			item.Operator = OperatorEq
			return item
		})

		disjunct := make([]tConjunct, 0, len(previousElementsWithEqualityCondition)+1)
		disjunct = append(disjunct, previousElementsWithEqualityCondition...)
		disjunct = append(disjunct, conjuncts[i])

		dnf = append(dnf, disjunct)
	}

	return dnf, nil
}

// validate - implements Cursor.
func (c *DefaultCursor) validate(orderings Orderings) error {
	if c.IsEmpty() {
		return nil
	}

	// The token and the ordering list must have the same length.
	if len(c.elements) != len(orderings) && len(c.elements) != 0 {
		return fmt.Errorf("cursor column number mismatch")
	}

	for i := range c.elements {
		cond := c.elements[i]
		orderBy := orderings[i]

		column, ok := orderBy.Expr.(Column)
		if !ok || cond.Column != column.String() {
			return fmt.Errorf("unexpected cursor column '%s'", cond.Column)
		}

		if !cond.Operator.Valid() {
			return fmt.Errorf("invalid cursor operator '%s'", cond.Operator)
		} else if cond.Operator.ForOrdering() != orderBy.Direction {
			return fmt.Errorf("unexpected cursor operator '%s'", cond.Operator)
		}
	}

	return nil
}

var (
	_ Cursor       = (*DefaultCursor)(nil)
	_ fmt.Stringer = (*DefaultCursor)(nil)
)

// Getters maps the ordering paths of a pager to value getters of an item.
// Example:
//
//	planpager.Getters[*Article]{
//		"a.id":         func(last *Article) any { return last.ID },
//		"a.created_at": func(last *Article) any { return last.CreatedAt },
//	}
type Getters[T any] map[string]func(T) any

// RecordGetters returns getters reading the given "alias.field" paths from
// root records.
func RecordGetters(paths ...string) Getters[*Record] {
	ret := make(Getters[*Record], len(paths))
	for _, path := range paths {
		column := Path(path)
		ret[path] = func(r *Record) any { return r.Get(column.Field) }
	}

	return ret
}

// NextPageCursor builds the cursor for the next page of the dataset.
func NextPageCursor[T any](
	initialPager *CursorPager[*DefaultCursor],
	resultSet []T,
	getters Getters[T],
) ([]T, *DefaultCursor, error) {
	err := initialPager.validate()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot build next page cursor: %w", err)
	}

	if IsLastPage(initialPager, resultSet) {
		return resultSet, nil, nil
	}
	resultSet = TrimResultSet(initialPager, resultSet)
	last := lo.LastOrEmpty(resultSet)

	ret := DefaultCursor{elements: nil}
	for _, orderBy := range initialPager.sort {
		column, ok := orderBy.Expr.(Column)
		if !ok {
			return nil, nil, fmt.Errorf("keyset ordering must be a path expression, got %T", orderBy.Expr)
		}

		getter, ok := getters[column.String()]
		if !ok {
			return nil, nil, fmt.Errorf("cannot find getter for column '%s' met in ordering", column)
		}

		value := getter(last)
		ret.elements = append(ret.elements, CursorElement{
			Column:   column.String(),
			Value:    value,
			Operator: orderBy.Direction.ForOperator(),
		})
	}

	return resultSet, &ret, nil
}

// CursorElement is a triple (c v o), where:
//
//   - "c" is a path expression "alias.field".
//   - "v" is the value of the path in the last item.
//   - "o" is the operator applied to the pair (c, v).
type CursorElement struct {
	Column   string   `json:"c"`
	Value    any      `json:"v"`
	Operator Operator `json:"o"`
}

func (c CursorElement) toConjunct() (tConjunct, error) {
	column, err := ParsePath(c.Column)
	if err != nil {
		return tConjunct{}, err
	}

	return tConjunct{
		Column:   column,
		Value:    parseAnyValue(c.Value),
		Operator: c.Operator,
	}, nil
}
