package expression

import (
	"math"
	"strings"

	"github.com/pecbali/hyrise-jit/jit/runtime"
	"github.com/pecbali/hyrise-jit/jit/types"
)

// evalBinary handles the arithmetic and comparison node kinds. Null
// propagation (§4.2: "if either operand is null, the result is null") is
// applied uniformly before any type-specific logic runs; division and
// modulo by zero are handled separately since they recover to null rather
// than raising (§7's RuntimeArithmeticNull).
//
// When both operands are integral (Int32/Int64), arithmetic and comparison
// run entirely in the int64 domain: float64 only has 53 bits of mantissa,
// so routing every Int64 value through it would silently lose precision
// (and could compare two distinct large Int64s as equal) well within the
// type's own value range. Only a mixed or float operand pair takes the
// float64 path.
func (e *Expr) evalBinary(ctx *runtime.Context) (interface{}, bool) {
	lv, lnull := e.Left.eval(ctx)
	rv, rnull := e.Right.eval(ctx)
	if lnull || rnull {
		return nil, true
	}

	if e.Left.Result.DataType == types.String || e.Right.Result.DataType == types.String {
		return stringCompare(e.Kind, lv.(string), rv.(string))
	}

	if isIntegerType(e.Left.Result.DataType) && isIntegerType(e.Right.Result.DataType) {
		return e.evalBinaryInt(lv, rv)
	}
	return e.evalBinaryFloat(lv, rv)
}

func (e *Expr) evalBinaryInt(lv, rv interface{}) (interface{}, bool) {
	l, r := asInt64(lv), asInt64(rv)
	switch e.Kind {
	case Add:
		return numericResultInt(e.Result.DataType, l+r), false
	case Sub:
		return numericResultInt(e.Result.DataType, l-r), false
	case Mul:
		return numericResultInt(e.Result.DataType, l*r), false
	case Div:
		if r == 0 {
			return nil, true // RuntimeArithmeticNull: recovered locally as null, §7
		}
		return numericResultInt(e.Result.DataType, l/r), false
	case Mod:
		if r == 0 {
			return nil, true
		}
		return numericResultInt(e.Result.DataType, l%r), false
	case Pow:
		return numericResultInt(e.Result.DataType, intPow(l, r)), false
	case Eq:
		return l == r, false
	case Ne:
		return l != r, false
	case Gt:
		return l > r, false
	case Ge:
		return l >= r, false
	case Lt:
		return l < r, false
	case Le:
		return l <= r, false
	default:
		return nil, true
	}
}

func (e *Expr) evalBinaryFloat(lv, rv interface{}) (interface{}, bool) {
	l, r := asFloat64(lv), asFloat64(rv)
	switch e.Kind {
	case Add:
		return numericResult(e.Result.DataType, l+r), false
	case Sub:
		return numericResult(e.Result.DataType, l-r), false
	case Mul:
		return numericResult(e.Result.DataType, l*r), false
	case Div:
		if r == 0 {
			return nil, true // RuntimeArithmeticNull: recovered locally as null, §7
		}
		return numericResult(e.Result.DataType, l/r), false
	case Mod:
		if r == 0 {
			return nil, true
		}
		return numericResult(e.Result.DataType, modFloat(l, r)), false
	case Pow:
		return numericResult(e.Result.DataType, math.Pow(l, r)), false
	case Eq:
		return l == r, false
	case Ne:
		return l != r, false
	case Gt:
		return l > r, false
	case Ge:
		return l >= r, false
	case Lt:
		return l < r, false
	case Le:
		return l <= r, false
	default:
		return nil, true
	}
}

// stringCompare implements §4.2's lexicographic byte-level string
// comparisons. Only Eq/Ne/Gt/Ge/Lt/Le are handled; any other kind yields
// null here. jit/plan does not check operand types at plan build, so such
// nodes are not rejected before execution.
func stringCompare(kind Kind, l, r string) (interface{}, bool) {
	switch kind {
	case Eq:
		return l == r, false
	case Ne:
		return l != r, false
	case Gt:
		return strings.Compare(l, r) > 0, false
	case Ge:
		return strings.Compare(l, r) >= 0, false
	case Lt:
		return strings.Compare(l, r) < 0, false
	case Le:
		return strings.Compare(l, r) <= 0, false
	default:
		return nil, true
	}
}

func asFloat64(v interface{}) float64 {
	switch x := v.(type) {
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func isIntegerType(dt types.DataType) bool {
	return dt == types.Int32 || dt == types.Int64
}

func isIntegerValue(v interface{}) bool {
	switch v.(type) {
	case int32, int64:
		return true
	default:
		return false
	}
}

func asInt64(v interface{}) int64 {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case int64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// numericResult narrows a float64 accumulator back down to the promoted
// result DataType computed at plan build (§4.2's result-type rule).
func numericResult(dt types.DataType, f float64) interface{} {
	switch dt {
	case types.Int32:
		return int32(f)
	case types.Int64:
		return int64(f)
	case types.Float32:
		return float32(f)
	default:
		return f
	}
}

// numericResultInt narrows an int64 accumulator back down to the promoted
// integral result DataType; Promote never yields a float DataType when both
// operands were integral, so only Int32/Int64 reach here.
func numericResultInt(dt types.DataType, v int64) interface{} {
	if dt == types.Int32 {
		return int32(v)
	}
	return v
}

func modFloat(l, r float64) float64 {
	return math.Mod(l, r)
}

// intPow computes base**exp by repeated squaring, staying exact in the
// int64 domain; a negative exponent has no integral result, so that case
// falls back to float64 rather than claiming a precision this domain
// cannot offer.
func intPow(base, exp int64) int64 {
	if exp < 0 {
		return int64(math.Pow(float64(base), float64(exp)))
	}
	var result int64 = 1
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func valuesEqual(a, b interface{}) bool {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	if isIntegerValue(a) && isIntegerValue(b) {
		return asInt64(a) == asInt64(b)
	}
	return asFloat64(a) == asFloat64(b)
}
