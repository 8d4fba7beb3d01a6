package glsl

// unrollLimit is the largest statically known trip count that gets
// unrolled instead of lowered to a structured loop.
const unrollLimit = 4

const indeterminate = ^uint(0)

// loopCount parses loops of the form
//
//	for(int index = initial; index [comparator] limit; index += increment)
//
// and returns the trip count, or indeterminate when the count cannot be
// derived statically.
func loopCount(node *Node) uint {
	var index *Node
	comparator := OpNull
	initial := 0
	limit := 0
	increment := 0

	// Index symbol and initial value.
	if init := node.LoopInit; init != nil {
		var variable *Node
		if init.Kind == KindAggregate && len(init.Children) > 0 {
			variable = init.Children[0]
		} else {
			variable = init
		}

		if variable != nil && variable.Type.Qualifier == QualTemporary {
			if assign := variable.AsBinary(); assign != nil && assign.Op == OpInitialize {
				symbol := assign.Left.AsSymbol()
				constant := assign.Right.AsConstant()
				if symbol != nil && constant != nil && constant.Type.Basic == TInt && constant.Type.Size == 1 {
					index = symbol
					initial = constant.IntConst()
				}
			}
		}
	}

	// Comparator and limit value.
	if index != nil && node.LoopCond != nil {
		if test := node.LoopCond.AsBinary(); test != nil {
			left := test.Left.AsSymbol()
			constant := test.Right.AsConstant()
			if left != nil && left.ID == index.ID && constant != nil &&
				constant.Type.Basic == TInt && constant.Type.Size == 1 {
				comparator = test.Op
				limit = constant.IntConst()
			}
		}
	}

	// Increment.
	if index != nil && comparator != OpNull && node.LoopExpr != nil {
		if binary := node.LoopExpr.AsBinary(); binary != nil {
			if constant := binary.Right.AsConstant(); constant != nil &&
				constant.Type.Basic == TInt && constant.Type.Size == 1 {
				value := constant.IntConst()
				switch binary.Op {
				case OpAddAssign:
					increment = value
				case OpSubAssign:
					increment = -value
				}
			}
		} else if unary := node.LoopExpr; unary.Kind == KindUnary {
			switch unary.Op {
			case OpPostIncrement, OpPreIncrement:
				increment = 1
			case OpPostDecrement, OpPreDecrement:
				increment = -1
			}
		}
	}

	if index != nil && comparator != OpNull && increment != 0 {
		if comparator == OpLessThanEqual {
			comparator = OpLessThan
			limit++
		}

		if comparator == OpLessThan {
			iterations := (limit - initial) / increment
			if iterations <= 0 {
				return 0
			}
			return uint(iterations)
		}
	}

	return indeterminate
}

// loopDiscontinuity detects break, continue or return inside a loop body,
// which forbids unrolling.
type loopDiscontinuity struct {
	loopDepth     int
	discontinuity bool
}

func detectLoopDiscontinuity(node *Node) bool {
	d := &loopDiscontinuity{}
	Traverse(node, d)
	return d.discontinuity
}

func (d *loopDiscontinuity) VisitSymbol(*Node)   {}
func (d *loopDiscontinuity) VisitConstant(*Node) {}

func (d *loopDiscontinuity) VisitBinary(Visit, *Node) bool    { return !d.discontinuity }
func (d *loopDiscontinuity) VisitUnary(Visit, *Node) bool     { return !d.discontinuity }
func (d *loopDiscontinuity) VisitSelection(Visit, *Node) bool { return !d.discontinuity }
func (d *loopDiscontinuity) VisitAggregate(Visit, *Node) bool { return !d.discontinuity }

func (d *loopDiscontinuity) VisitLoop(visit Visit, _ *Node) bool {
	if visit == PreVisit {
		d.loopDepth++
	} else if visit == PostVisit {
		d.loopDepth--
	}
	return true
}

func (d *loopDiscontinuity) VisitBranch(visit Visit, node *Node) bool {
	if d.discontinuity {
		return false
	}
	if visit != PreVisit || d.loopDepth == 0 {
		return true
	}

	switch node.Op {
	case OpKill:
		// A fragment discard does not alter the loop's trip count.
	case OpBreak, OpContinue, OpReturn:
		d.discontinuity = true
	}

	return !d.discontinuity
}
