package planpager

import (
	"time"

	"github.com/samber/lo"
)

type (
	tConjunct struct {
		Column   Column
		Value    any
		Operator Operator
	}

	tDisjunct []tConjunct

	// tDNF represents the disjunctive normal form (DNF) of a logical expression.
	// Each disjunct is joined by OR, and each disjunct consists of a list of
	// conjuncts which are joined by AND. A conjunct is the value of
	// Operator(Column, Value).
	//
	// Thus:
	//
	//	DNF = X1 OR X2 ... OR Xn, where Xi = Ai1 AND Ai2 ... AND Aim.
	//	DNF = (A11 AND A12 AND A13) OR (A21 AND A22 AND A23), for n=2, m=3.
	//
	//  Where (A11 AND A12 AND A13), (A21 AND A22 AND A23) are disjuncts and
	//  A11, A12, A13, A21, A22, A23 are conjuncts.
	tDNF []tDisjunct
)

// toExpr converts a conjunct of the form Operator(Column, Value) into the
// plan condition "Column Operator Value". The value is bound, never inlined.
//
// Example:
//
//	tConjunct = { Column: u.id, Operator: ">", Value: 123}
//
// Result:
//
//	u.id > ? with argument 123
func (c tConjunct) toExpr() Expr {
	return Binary{Op: c.Operator, Left: c.Column, Right: Lit(c.Value)}
}

// parseAnyValue turns textual timestamps back into time.Time. Cursor values
// travel as JSON, so times arrive as strings.
func parseAnyValue(v any) any {
	fnParseBytesToTimeOrValue := func(vBytes []byte) any {
		dst := time.Time{}
		err := dst.UnmarshalText(vBytes)
		if err == nil {
			return dst
		}

		return v
	}

	switch vt := v.(type) {
	case string:
		return fnParseBytesToTimeOrValue([]byte(vt))
	case []byte:
		return fnParseBytesToTimeOrValue(vt)
	default:
		return v
	}
}

// toExpr converts a disjunct (K1, K2, K3) into "K1 AND K2 AND K3". An empty
// disjunct yields nil.
func (d tDisjunct) toExpr() Expr {
	return And(lo.Map(d, func(c tConjunct, _ int) Expr { return c.toExpr() })...)
}

// toExpr converts a DNF into "X1 OR X2 ... OR Xn", skipping empty disjuncts.
// An empty DNF yields nil, i.e. no restriction.
//
// Example:
//
//	tDNF = {
//		{{Column: u.id, Operator: "<", Value: 10}},
//		{{Column: u.id, Operator: "=", Value: 10}, {Column: u.name, Operator: "<", Value: "abc"}},
//	}
//
// Result:
//
//	u.id < ? OR (u.id = ? AND u.name < ?)
func (d tDNF) toExpr() Expr {
	return Or(lo.Map(d, func(disjunct tDisjunct, _ int) Expr { return disjunct.toExpr() })...)
}
