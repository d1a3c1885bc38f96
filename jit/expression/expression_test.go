package expression

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pecbali/hyrise-jit/jit/config"
	"github.com/pecbali/hyrise-jit/jit/runtime"
	"github.com/pecbali/hyrise-jit/jit/types"
	"github.com/pecbali/hyrise-jit/jit/value"
)

// newTestContext builds a RuntimeContext around a plain tuple with every
// column leaf pre-populated (Load=false), so expression semantics can be
// exercised without segment readers or a real chunk.
func newTestContext(size int, cfg config.Config) *runtime.Context {
	return &runtime.Context{Config: cfg, Tuple: value.NewVariantVector(size)}
}

func col(dt types.DataType, nullable bool, idx int) value.TupleHandle {
	return value.TupleHandle{DataType: dt, IsNullable: nullable, TupleIndex: idx}
}

func setInt32(ctx *runtime.Context, h value.TupleHandle, v int32) {
	ctx.Tuple.SetInt32(h.TupleIndex, v)
	if h.IsNullable {
		ctx.Tuple.SetNull(h.TupleIndex, false)
	}
}

func setNull(ctx *runtime.Context, h value.TupleHandle) {
	ctx.Tuple.SetNull(h.TupleIndex, true)
}

func setInt64(ctx *runtime.Context, h value.TupleHandle, v int64) {
	ctx.Tuple.SetInt64(h.TupleIndex, v)
	if h.IsNullable {
		ctx.Tuple.SetNull(h.TupleIndex, false)
	}
}

func TestArithmeticNullPropagation(t *testing.T) {
	ctx := newTestContext(3, config.Default())
	a := col(types.Int32, true, 0)
	b := col(types.Int32, true, 1)
	setNull(ctx, a)
	setInt32(ctx, b, 5)

	add := NewBinary(Add, NewColumn(a), NewColumn(b), col(types.Int32, true, 2))
	_, isNull := add.ComputeAndGet(ctx)
	require.True(t, isNull)
}

func TestDivisionByZeroIsNullNotPanic(t *testing.T) {
	ctx := newTestContext(3, config.Default())
	a := col(types.Int32, false, 0)
	b := col(types.Int32, false, 1)
	setInt32(ctx, a, 10)
	setInt32(ctx, b, 0)

	div := NewBinary(Div, NewColumn(a), NewColumn(b), col(types.Int32, true, 2))
	val, isNull := div.ComputeAndGet(ctx)
	require.True(t, isNull)
	require.Nil(t, val)

	mod := NewBinary(Mod, NewColumn(a), NewColumn(b), col(types.Int32, true, 2))
	_, isNull = mod.ComputeAndGet(ctx)
	require.True(t, isNull)
}

func TestBetweenIsInclusive(t *testing.T) {
	ctx := newTestContext(4, config.Default())
	v := col(types.Int32, false, 0)
	lo := col(types.Int32, false, 1)
	hi := col(types.Int32, false, 2)
	setInt32(ctx, v, 5)
	setInt32(ctx, lo, 5)
	setInt32(ctx, hi, 10)

	between := NewBetween(NewColumn(v), NewColumn(lo), NewColumn(hi), col(types.Bool, false, 3))
	val, isNull := between.ComputeAndGet(ctx)
	require.False(t, isNull)
	require.True(t, val.(bool))

	setInt32(ctx, v, 10)
	val, isNull = between.ComputeAndGet(ctx)
	require.False(t, isNull)
	require.True(t, val.(bool))

	setInt32(ctx, v, 11)
	val, isNull = between.ComputeAndGet(ctx)
	require.False(t, isNull)
	require.False(t, val.(bool))
}

func TestAndShortCircuitsOnFalse(t *testing.T) {
	cfg := config.Default()
	cfg.EnableLogicalPruning = true
	ctx := newTestContext(3, cfg)
	left := col(types.Bool, false, 0)
	right := col(types.Bool, false, 1)
	setInt32(ctx, left, 0) // false

	// The right leaf is marked Load=true with no reader bound; if evalAnd
	// actually evaluated it under pruning, this would panic on a nil
	// ctx.Readers index. Pruning must prevent that call entirely.
	rightLeaf := NewColumn(right)
	rightLeaf.Load = true
	rightLeaf.ReaderIndex = 0

	and := NewBinary(And, NewColumn(left), rightLeaf, col(types.Bool, false, 2))
	val, isNull := and.ComputeAndGet(ctx)
	require.False(t, isNull)
	require.False(t, val.(bool))
}

func TestThreeValuedAndOr(t *testing.T) {
	cfg := config.Default()
	cfg.EnableLogicalPruning = false
	ctx := newTestContext(3, cfg)
	left := col(types.Bool, true, 0)
	right := col(types.Bool, true, 1)

	setNull(ctx, left)
	setInt32(ctx, right, 0) // false

	and := NewBinary(And, NewColumn(left), NewColumn(right), col(types.Bool, true, 2))
	val, isNull := and.ComputeAndGet(ctx)
	require.False(t, isNull)
	require.False(t, val.(bool)) // null AND false = false

	or := NewBinary(Or, NewColumn(left), NewColumn(right), col(types.Bool, true, 2))
	_, isNull = or.ComputeAndGet(ctx)
	require.True(t, isNull) // null OR false = null
}

func TestInWithNullCandidateAndNoMatch(t *testing.T) {
	ctx := newTestContext(4, config.Default())
	v := col(types.Int32, false, 0)
	c1 := col(types.Int32, true, 1)
	c2 := col(types.Int32, false, 2)
	setInt32(ctx, v, 5)
	setNull(ctx, c1)
	setInt32(ctx, c2, 7)

	in := NewIn(NewColumn(v), []*Expr{NewColumn(c1), NewColumn(c2)}, col(types.Bool, true, 3))
	_, isNull := in.ComputeAndGet(ctx)
	require.True(t, isNull) // no match found, but a null candidate means "unknown" not "false"
}

// TestInt64ArithmeticStaysExactBeyondFloat64Mantissa exercises a magnitude
// (2^53 + 1) that a float64 round-trip cannot represent exactly; routing
// through the float64 path would lose the +1, and would compare this value
// equal to 2^53 itself.
func TestInt64ArithmeticStaysExactBeyondFloat64Mantissa(t *testing.T) {
	const beyondMantissa = int64(1) << 53 // 9007199254740992
	ctx := newTestContext(3, config.Default())
	a := col(types.Int64, false, 0)
	b := col(types.Int64, false, 1)
	setInt64(ctx, a, beyondMantissa)
	setInt64(ctx, b, 1)

	add := NewBinary(Add, NewColumn(a), NewColumn(b), col(types.Int64, false, 2))
	val, isNull := add.ComputeAndGet(ctx)
	require.False(t, isNull)
	require.Equal(t, beyondMantissa+1, val.(int64))

	eq := NewBinary(Eq, NewColumn(a), NewColumn(b), col(types.Bool, false, 2))
	setInt64(ctx, b, beyondMantissa+1)
	val, isNull = eq.ComputeAndGet(ctx)
	require.False(t, isNull)
	require.False(t, val.(bool), "a float64 round-trip would wrongly equate these two distinct Int64 values")
}

func TestComputeAndGetDoesNotWriteOwnSlot(t *testing.T) {
	ctx := newTestContext(3, config.Default())
	a := col(types.Int32, false, 0)
	b := col(types.Int32, false, 1)
	resultSlot := col(types.Int32, false, 2)
	setInt32(ctx, a, 2)
	setInt32(ctx, b, 3)

	add := NewBinary(Add, NewColumn(a), NewColumn(b), resultSlot)
	val, _ := add.ComputeAndGet(ctx)
	require.Equal(t, int32(5), val.(int32))
	require.Equal(t, int32(0), ctx.Tuple.GetInt32(resultSlot.TupleIndex))

	add.Compute(ctx)
	require.Equal(t, int32(5), ctx.Tuple.GetInt32(resultSlot.TupleIndex))
}
