package glsl

// trivialBudget is the evaluation budget below which an expression may be
// computed branchlessly for ?:, && and ||.
const trivialBudget = 6

// trivial conservatively checks whether an expression is fast to compute
// and has no side effects.
func (e *Emitter) trivial(expression *Node, budget int) bool {
	if !expression.IsRegister() {
		return false
	}
	return e.cost(expression, budget) >= 0
}

// cost returns the remaining computing budget; a negative result means the
// expression is too expensive or has side effects.
func (e *Emitter) cost(expression *Node, budget int) int {
	if budget < 0 {
		return budget
	}

	switch expression.Kind {
	case KindSymbol, KindConstant:
		return budget
	case KindBinary:
		switch expression.Op {
		case OpVectorSwizzle, OpIndexDirect, OpIndexDirectStruct:
			return e.cost(expression.Left, budget)
		case OpAdd, OpSub, OpMul:
			return e.cost(expression.Left, e.cost(expression.Right, budget-1))
		}
		return -1
	case KindUnary:
		switch expression.Op {
		case OpAbs, OpNegative:
			return e.cost(expression.Operand, budget-1)
		}
		return -1
	case KindSelection:
		if expression.Ternary {
			if condition := expression.Condition.AsConstant(); condition != nil {
				if condition.BoolConst() {
					return e.cost(expression.TrueBlock, budget)
				}
				return e.cost(expression.FalseBlock, budget)
			}
			return e.cost(expression.TrueBlock, e.cost(expression.FalseBlock, budget-2))
		}
	}

	return -1
}
