package planpager

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
)

// Direction defines the sort direction for the requested dataset.
type Direction string

const (
	DirectionASC  Direction = "ASC"
	DirectionDESC Direction = "DESC"
)

func (o Direction) Valid() bool {
	return o == DirectionASC || o == DirectionDESC
}

func (o Direction) ForOperator() Operator {
	switch o {
	case DirectionASC:
		return OperatorGT
	case DirectionDESC:
		return OperatorLT
	default:
		panic(fmt.Errorf("cannot map direction '%s' to operator", o))
	}
}

type (
	// Orderings is an ORDER BY list.
	Orderings []OrderBy
	// OrderBy is a single ORDER BY term. Expr is usually a Column, but may be
	// any expression, including a Ref to a hidden projection.
	OrderBy struct {
		Expr      Expr
		Direction Direction
	}

	ColumnAlias = string

	// ColumnMapping maps external column aliases to path expressions of the
	// plan ("alias.field"). Keys are what API clients send, values are what
	// the plan understands.
	ColumnMapping = map[ColumnAlias]string
)

func Asc(e Expr) OrderBy {
	return OrderBy{Expr: e, Direction: DirectionASC}
}

func Desc(e Expr) OrderBy {
	return OrderBy{Expr: e, Direction: DirectionDESC}
}

var _availableColumnNameSymbols = append([]rune("_"), lo.AlphanumericCharset...)

func (o OrderBy) validate() error {
	if !o.Direction.Valid() {
		return fmt.Errorf("invalid ordering direction '%s'", o.Direction)
	}

	if o.Expr == nil {
		return fmt.Errorf("empty ordering expression")
	}

	// Path segments end up as identifiers in SQL, keep them to a safe charset.
	if col, ok := o.Expr.(Column); ok {
		for _, segment := range []string{col.Alias, col.Field} {
			if !lo.Every(_availableColumnNameSymbols, []rune(segment)) {
				return fmt.Errorf("ordering column name contains forbidden symbols '%s'", col)
			}
		}
	}

	return nil
}

// Columns returns the ORDER BY terms that are plain path expressions.
func (o Orderings) Columns() []Column {
	return lo.FilterMap(o, func(ordering OrderBy, _ int) (Column, bool) {
		col, ok := ordering.Expr.(Column)
		return col, ok
	})
}

func (o Orderings) clone() Orderings {
	if o == nil {
		return nil
	}

	return lo.Map(o, func(ordering OrderBy, _ int) OrderBy {
		return OrderBy{Expr: cloneExpr(ordering.Expr), Direction: ordering.Direction}
	})
}

func (o Orderings) validate() error {
	if len(o) == 0 {
		return fmt.Errorf("empty ordering list")
	}

	var err error
	for _, ordering := range o {
		err = ordering.validate()
		if err != nil {
			return err
		}
	}

	return nil
}

// ParseSort builds Orderings from a list of strings in the format
// "column asc|desc". Column aliases are resolved via ColumnMapping into path
// expressions. Returns an error if an alias is not found in the mapping.
func ParseSort(stringsOrderings []string, columnMapping ColumnMapping) (Orderings, error) {
	ret := make([]OrderBy, 0, len(stringsOrderings))
	aliases := lo.Keys(columnMapping)

	for _, stringOrdering := range stringsOrderings {
		cutStringOrdering := strings.Fields(stringOrdering)
		if len(cutStringOrdering) != 2 {
			return nil, fmt.Errorf("invalid ordering string format '%s'", stringOrdering)
		}

		columnAlias := cutStringOrdering[0]
		direction := Direction(strings.ToUpper(cutStringOrdering[1]))
		path := columnMapping[columnAlias]
		if path == "" {
			return nil, fmt.Errorf("invalid column alias. closest: '%s'", closestAlias(columnAlias, aliases))
		}

		column, err := ParsePath(path)
		if err != nil {
			return nil, fmt.Errorf("column alias '%s': %w", columnAlias, err)
		}

		ret = append(ret, OrderBy{
			Expr:      column,
			Direction: direction,
		})
	}

	return ret, nil
}

func closestAlias(input ColumnAlias, dataSet []ColumnAlias) ColumnAlias {
	minDist := math.MaxInt
	closest := ""

	for _, dataSetAlias := range dataSet {
		dist := levenshtein([]rune(dataSetAlias), []rune(input))
		if dist < minDist || (dist == minDist && dataSetAlias < closest) {
			minDist = dist
			closest = dataSetAlias
		}
	}

	return closest
}
