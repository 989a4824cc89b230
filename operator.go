package planpager

import "fmt"

// Operator defines a binary operator of a plan expression.
//
// Only OperatorGT and OperatorLT are valid cursor operators, see Valid.
type Operator string

// Valid reports whether the operator can be stored in a keyset cursor.
func (o Operator) Valid() bool {
	return o == OperatorLT || o == OperatorGT
}

func (o Operator) ForOrdering() Direction {
	switch o {
	case OperatorGT:
		return DirectionASC
	case OperatorLT:
		return DirectionDESC
	default:
		panic(fmt.Errorf("cannot map operator '%s' to ordering", o))
	}
}

// logical reports whether the operator combines boolean operands.
func (o Operator) logical() bool {
	return o == OperatorAnd || o == OperatorOr
}

const (
	OperatorGT  Operator = ">"
	OperatorLT  Operator = "<"
	OperatorGTE Operator = ">="
	OperatorLTE Operator = "<="
	OperatorEq  Operator = "="
	OperatorNeq Operator = "<>"

	OperatorLike Operator = "LIKE"

	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"

	OperatorAdd Operator = "+"
	OperatorSub Operator = "-"
	OperatorMul Operator = "*"
	OperatorDiv Operator = "/"
)
