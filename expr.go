package planpager

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/samber/lo"
)

// Expr is a node of a plan expression tree.
//
// The set of implementations is closed: Walk, cloneExpr and the compiler
// switch over every variant and panic on anything else.
type Expr interface {
	expr()
}

type (
	// Column is a path expression "alias.field" where alias is the root
	// alias or a join alias and field is an entity field name.
	Column struct {
		Alias string
		Field string
	}

	// Param references a bound parameter of the plan.
	Param struct {
		Ref ParamRef
	}

	// Literal is an inline constant. It is always sent as a bound argument.
	Literal struct {
		Value any
	}

	Binary struct {
		Op    Operator
		Left  Expr
		Right Expr
	}

	Not struct {
		Expr Expr
	}

	IsNull struct {
		Expr    Expr
		Negated bool
	}

	InList struct {
		Expr    Expr
		List    []Expr
		Negated bool
	}

	// Func is a function call. COUNT without arguments renders as COUNT(*).
	Func struct {
		Name     string
		Args     []Expr
		Distinct bool
	}

	Case struct {
		Whens []When
		Else  Expr
	}

	When struct {
		Cond Expr
		Then Expr
	}

	// Subquery is a scalar sub-select. It may reference aliases of the
	// enclosing plan and shares its parameters.
	Subquery struct {
		Plan *LogicalPlan
	}

	// Ref references a projection of the enclosing plan by its alias, e.g.
	// ORDER BY max_version.
	Ref struct {
		Name string
	}

	// EntityRef stands for the entity behind alias as a whole: its
	// identifier in comparisons, all of its columns in GROUP BY.
	EntityRef struct {
		Alias string
	}
)

func (Column) expr()    {}
func (Param) expr()     {}
func (Literal) expr()   {}
func (Binary) expr()    {}
func (Not) expr()       {}
func (IsNull) expr()    {}
func (InList) expr()    {}
func (Func) expr()      {}
func (Case) expr()      {}
func (Subquery) expr()  {}
func (Ref) expr()       {}
func (EntityRef) expr() {}

// String returns the "alias.field" form of the path.
func (c Column) String() string {
	return c.Alias + "." + c.Field
}

// Path parses "alias.field" into a Column. It panics on malformed input and
// is meant for statically known paths; use ParsePath for user input.
func Path(path string) Column {
	c, err := ParsePath(path)
	if err != nil {
		panic(err)
	}

	return c
}

// ParsePath parses "alias.field" into a Column.
func ParsePath(path string) (Column, error) {
	alias, field, ok := strings.Cut(strings.TrimSpace(path), ".")
	if !ok || alias == "" || field == "" || strings.Contains(field, ".") {
		return Column{}, fmt.Errorf("invalid path expression '%s'", path)
	}

	return Column{Alias: alias, Field: field}, nil
}

func P(name string) Param {
	return Param{Ref: Named(name)}
}

func PAt(position int) Param {
	return Param{Ref: Positional(position)}
}

func Lit(v any) Literal {
	return Literal{Value: v}
}

func Eq(l, r Expr) Binary  { return Binary{Op: OperatorEq, Left: l, Right: r} }
func Gt(l, r Expr) Binary  { return Binary{Op: OperatorGT, Left: l, Right: r} }
func Lt(l, r Expr) Binary  { return Binary{Op: OperatorLT, Left: l, Right: r} }
func Mul(l, r Expr) Binary { return Binary{Op: OperatorMul, Left: l, Right: r} }

// And joins the non-nil operands with AND. It returns nil when every operand
// is nil.
func And(exprs ...Expr) Expr {
	return fold(OperatorAnd, exprs)
}

// Or joins the non-nil operands with OR. It returns nil when every operand
// is nil.
func Or(exprs ...Expr) Expr {
	return fold(OperatorOr, exprs)
}

func fold(op Operator, exprs []Expr) Expr {
	var ret Expr
	for _, e := range lo.Filter(exprs, func(e Expr, _ int) bool { return e != nil }) {
		if ret == nil {
			ret = e
			continue
		}
		ret = Binary{Op: op, Left: ret, Right: e}
	}

	return ret
}

func Count(e Expr) Func {
	return Func{Name: "COUNT", Args: []Expr{e}}
}

func CountDistinct(e Expr) Func {
	return Func{Name: "COUNT", Args: []Expr{e}, Distinct: true}
}

func Max(e Expr) Func {
	return Func{Name: "MAX", Args: []Expr{e}}
}

// Walk visits e depth-first, descending into sub-select plans. Returning
// false from fn skips the children of the current node.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}

	switch n := e.(type) {
	case Column, Param, Literal, Ref, EntityRef:
	case Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case Not:
		Walk(n.Expr, fn)
	case IsNull:
		Walk(n.Expr, fn)
	case InList:
		Walk(n.Expr, fn)
		for _, item := range n.List {
			Walk(item, fn)
		}
	case Func:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	case Case:
		for _, w := range n.Whens {
			Walk(w.Cond, fn)
			Walk(w.Then, fn)
		}
		Walk(n.Else, fn)
	case Subquery:
		for _, sub := range n.Plan.expressions() {
			Walk(sub, fn)
		}
	default:
		panic(fmt.Errorf("unknown expression %T", e))
	}
}

func cloneExpr(e Expr) Expr {
	if e == nil {
		return nil
	}

	switch n := e.(type) {
	case Column, Param, Literal, Ref, EntityRef:
		return n
	case Binary:
		return Binary{Op: n.Op, Left: cloneExpr(n.Left), Right: cloneExpr(n.Right)}
	case Not:
		return Not{Expr: cloneExpr(n.Expr)}
	case IsNull:
		return IsNull{Expr: cloneExpr(n.Expr), Negated: n.Negated}
	case InList:
		return InList{Expr: cloneExpr(n.Expr), List: cloneExprs(n.List), Negated: n.Negated}
	case Func:
		return Func{Name: n.Name, Args: cloneExprs(n.Args), Distinct: n.Distinct}
	case Case:
		whens := lo.Map(n.Whens, func(w When, _ int) When {
			return When{Cond: cloneExpr(w.Cond), Then: cloneExpr(w.Then)}
		})
		return Case{Whens: whens, Else: cloneExpr(n.Else)}
	case Subquery:
		return Subquery{Plan: n.Plan.Clone()}
	default:
		panic(fmt.Errorf("unknown expression %T", e))
	}
}

func cloneExprs(exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}

	return lo.Map(exprs, func(e Expr, _ int) Expr { return cloneExpr(e) })
}

// sameExpr compares expressions structurally. Plain == would panic on
// variants holding slices.
func sameExpr(a, b Expr) bool {
	return reflect.DeepEqual(a, b)
}
