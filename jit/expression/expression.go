// Package expression implements the expression tree of §4.2: a recursive
// evaluator over tuple handles whose leaves are columns or literals and
// whose internal nodes are arithmetic, comparison, logical, and string
// operators. Every node carries the TupleHandle naming the slot its result
// lives in once Compute has run.
package expression

import (
	"github.com/pecbali/hyrise-jit/jit/runtime"
	"github.com/pecbali/hyrise-jit/jit/types"
	"github.com/pecbali/hyrise-jit/jit/value"
)

// Kind enumerates every node kind §4.2 names.
type Kind int

const (
	Column Kind = iota
	Literal
	Add
	Sub
	Mul
	Div
	Mod
	Pow
	Eq
	Ne
	Gt
	Ge
	Lt
	Le
	Between
	Like
	NotLike
	And
	Or
	Not
	IsNull
	IsNotNull
	In
)

// Expr is one node of the tree. Child expressions are owned strictly —
// referenced only through this tree, never shared — matching the Design
// Notes' "shared-ownership" resolution: no shared ownership is required.
type Expr struct {
	Kind   Kind
	Left   *Expr
	Right  *Expr
	Extra  []*Expr // Between: [low, high]; In: the candidate list

	// Result is the slot this node's value occupies once Compute has run.
	Result value.TupleHandle

	// Column leaf fields. The node stores an index into the current
	// RuntimeContext's reader list, not a reader itself — readers are
	// rebound per chunk (§3) while the expression tree is built once and
	// stays immutable for the query's lifetime (§3's Lifecycles). Load
	// decides whether evaluation triggers that reader; when false,
	// evaluation is a no-op that trusts a prior lazy load (or a literal
	// already materialized into this node's own leaf) to have filled
	// Result already. Store decides whether a triggered load additionally
	// persists to the tuple, for later read-from-slot leaves referencing
	// the same column (§4.3's lazy-load discipline). Both flags are
	// assigned once at plan build by jit/plan's lazy-load analysis.
	ReaderIndex int
	Load        bool
	Store       bool

	// Literal leaf fields.
	LiteralValue  interface{}
	LiteralIsNull bool

	// Like/NotLike: compiled once at plan time.
	Matcher *LikeMatcher
}

// NewColumn builds a Column leaf bound to handle. Load/Store are set
// later by the plan's lazy-load analysis (jit/plan); a freshly built leaf
// defaults to read-from-slot (Load=false), correct for any leaf the
// planner doesn't explicitly wire to a reader.
func NewColumn(handle value.TupleHandle) *Expr {
	return &Expr{Kind: Column, Result: handle}
}

// NewLiteral builds a constant leaf. The literal's validity against its
// declared DataType is checked at construction by jit/plan, which raises
// OutOfRangeCast before an Expr ever reaches the runtime.
func NewLiteral(handle value.TupleHandle, val interface{}, isNull bool) *Expr {
	return &Expr{Kind: Literal, Result: handle, LiteralValue: val, LiteralIsNull: isNull}
}

// NewUnary builds a Not/IsNull/IsNotNull node. resultHandle must already
// reflect the result-type rule (§4.2): Bool, non-nullable for IsNull and
// IsNotNull, Bool with child's nullability for Not.
func NewUnary(kind Kind, child *Expr, resultHandle value.TupleHandle) *Expr {
	return &Expr{Kind: kind, Left: child, Result: resultHandle}
}

// NewBinary builds any binary node other than Between/In.
func NewBinary(kind Kind, left, right *Expr, resultHandle value.TupleHandle) *Expr {
	return &Expr{Kind: kind, Left: left, Right: right, Result: resultHandle}
}

// NewBetween builds a Between node: value BETWEEN low AND high, inclusive
// at both ends (§8's boundary-case requirement).
func NewBetween(val, low, high *Expr, resultHandle value.TupleHandle) *Expr {
	return &Expr{Kind: Between, Left: val, Extra: []*Expr{low, high}, Result: resultHandle}
}

// NewIn builds value IN (candidates...).
func NewIn(val *Expr, candidates []*Expr, resultHandle value.TupleHandle) *Expr {
	return &Expr{Kind: In, Left: val, Extra: candidates, Result: resultHandle}
}

// NewLike builds a Like/NotLike node with its pattern pre-compiled, per
// §4.2 ("the pattern is compiled once at plan time").
func NewLike(notLike bool, subject, pattern *Expr, resultHandle value.TupleHandle, compiled *LikeMatcher) *Expr {
	k := Like
	if notLike {
		k = NotLike
	}
	return &Expr{Kind: k, Left: subject, Right: pattern, Result: resultHandle, Matcher: compiled}
}

// ResultType computes the promoted/derived DataType and nullability for a
// binary arithmetic node, per §4.2's result-type rule. Called at plan
// build, before the Result handle is known.
func ResultType(kind Kind, leftType, rightType types.DataType, leftNullable, rightNullable bool) (types.DataType, bool) {
	switch kind {
	case Add, Sub, Mul, Div, Mod, Pow:
		return types.Promote(leftType, rightType), leftNullable || rightNullable
	case Eq, Ne, Gt, Ge, Lt, Le, Between, Like, NotLike, And, Or, In:
		return types.Bool, leftNullable || rightNullable
	case IsNull, IsNotNull:
		return types.Bool, false
	case Not:
		return types.Bool, leftNullable
	default:
		return types.Null, false
	}
}

// Compute is the recursive evaluation contract of §4.2: evaluate children,
// compute the result, and write it into this node's slot (value and null
// bit). Column leaves with Load=false are a no-op: the value is already in
// place, either because a sibling loaded it or because it's a literal
// stored directly in the node.
func (e *Expr) Compute(ctx *runtime.Context) {
	val, isNull := e.eval(ctx)
	if e.Kind == Column {
		// Column leaves persist (or not) entirely inside eval, governed
		// by their own Store flag; there is nothing left for the parent
		// Compute call to do.
		return
	}
	if isNull {
		value.SetNullValue(ctx.Tuple, e.Result)
		return
	}
	value.Set(ctx.Tuple, e.Result, val)
}

// ComputeAndGet returns this node's value directly without touching its
// own Result slot (the Design Notes' resolved convention: callers write
// explicitly when they need the value visible downstream). Column leaves
// still honor their own Store flag exactly as under Compute, since that
// flag encodes a different leaf's later read-from-slot dependency, not
// this call's own consumer.
func (e *Expr) ComputeAndGet(ctx *runtime.Context) (interface{}, bool) {
	return e.eval(ctx)
}

func (e *Expr) eval(ctx *runtime.Context) (interface{}, bool) {
	switch e.Kind {
	case Column:
		return e.evalColumn(ctx)
	case Literal:
		if e.LiteralIsNull {
			return nil, true
		}
		return e.LiteralValue, false
	case Not:
		v, isNull := e.Left.eval(ctx)
		if isNull {
			return nil, true
		}
		return !v.(bool), false
	case IsNull:
		_, isNull := e.Left.eval(ctx)
		return isNull, false
	case IsNotNull:
		_, isNull := e.Left.eval(ctx)
		return !isNull, false
	case And:
		return e.evalAnd(ctx)
	case Or:
		return e.evalOr(ctx)
	case Between:
		return e.evalBetween(ctx)
	case In:
		return e.evalIn(ctx)
	case Like, NotLike:
		return e.evalLike(ctx)
	default:
		return e.evalBinary(ctx)
	}
}

func (e *Expr) evalColumn(ctx *runtime.Context) (interface{}, bool) {
	if !e.Load {
		if e.Result.IsNullable && ctx.Tuple.IsNull(e.Result.TupleIndex) {
			return nil, true
		}
		return value.Get(ctx.Tuple, e.Result), false
	}
	val, ok := ctx.Readers[e.ReaderIndex].ReadAndGet(ctx.RowOffset)
	if e.Store {
		if ok {
			value.Set(ctx.Tuple, e.Result, val)
		} else {
			value.SetNullValue(ctx.Tuple, e.Result)
		}
	}
	if !ok {
		return nil, true
	}
	return val, false
}

// evalAnd implements §4.2's LOGICAL PRUNING and three-valued truth table.
// When pruning is enabled and the left side alone determines the result
// (non-null false for And, non-null true for Or), the right subtree is
// never evaluated at all — including any column load it would otherwise
// trigger.
func (e *Expr) evalAnd(ctx *runtime.Context) (interface{}, bool) {
	lv, lnull := e.Left.eval(ctx)
	if ctx.Config.EnableLogicalPruning && !lnull && !lv.(bool) {
		return false, false
	}
	rv, rnull := e.Right.eval(ctx)
	switch {
	case !lnull && !rnull:
		return lv.(bool) && rv.(bool), false
	case !lnull && !lv.(bool):
		return false, false // false and null = false
	case !rnull && !rv.(bool):
		return false, false // null and false = false
	default:
		return nil, true
	}
}

func (e *Expr) evalOr(ctx *runtime.Context) (interface{}, bool) {
	lv, lnull := e.Left.eval(ctx)
	if ctx.Config.EnableLogicalPruning && !lnull && lv.(bool) {
		return true, false
	}
	rv, rnull := e.Right.eval(ctx)
	switch {
	case !lnull && !rnull:
		return lv.(bool) || rv.(bool), false
	case !lnull && lv.(bool):
		return true, false
	case !rnull && rv.(bool):
		return true, false
	default:
		return nil, true
	}
}

// evalBetween includes both ends, per §8's boundary-case requirement.
func (e *Expr) evalBetween(ctx *runtime.Context) (interface{}, bool) {
	v, vnull := e.Left.eval(ctx)
	lo, lonull := e.Extra[0].eval(ctx)
	hi, hinull := e.Extra[1].eval(ctx)
	if vnull || lonull || hinull {
		return nil, true
	}
	if isIntegerValue(v) && isIntegerValue(lo) && isIntegerValue(hi) {
		a, b, c := asInt64(v), asInt64(lo), asInt64(hi)
		return a >= b && a <= c, false
	}
	a, b, c := asFloat64(v), asFloat64(lo), asFloat64(hi)
	return a >= b && a <= c, false
}

func (e *Expr) evalIn(ctx *runtime.Context) (interface{}, bool) {
	v, vnull := e.Left.eval(ctx)
	if vnull {
		return nil, true
	}
	sawNull := false
	for _, candidate := range e.Extra {
		cv, cnull := candidate.eval(ctx)
		if cnull {
			sawNull = true
			continue
		}
		if valuesEqual(v, cv) {
			return true, false
		}
	}
	if sawNull {
		return nil, true
	}
	return false, false
}
