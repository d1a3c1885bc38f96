package plan

import (
	"math"

	"github.com/spf13/cast"

	"github.com/pecbali/hyrise-jit/jit/expression"
	"github.com/pecbali/hyrise-jit/jit/jiterrors"
	"github.com/pecbali/hyrise-jit/jit/types"
	"github.com/pecbali/hyrise-jit/jit/value"
)

// NewLiteral coerces raw (as parsed from query text) into declared's Go
// representation via spf13/cast, raising ErrOutOfRangeCast when the value
// cannot be represented — the one site SPEC_FULL.md names for that error
// (§7). A nil raw always produces a null literal regardless of declared.
func NewLiteral(raw interface{}, declared types.DataType, nullable bool, tupleIndex int) (*expression.Expr, error) {
	handle := value.TupleHandle{DataType: declared, IsNullable: nullable, TupleIndex: tupleIndex}
	if raw == nil {
		return expression.NewLiteral(handle, nil, true), nil
	}

	switch declared {
	case types.Int32:
		i, err := cast.ToInt64E(raw)
		f, isFloat := raw.(float64)
		if err != nil || i < math.MinInt32 || i > math.MaxInt32 || (isFloat && f != float64(i)) {
			return nil, jiterrors.ErrOutOfRangeCast.New(raw, declared)
		}
		return expression.NewLiteral(handle, int32(i), false), nil
	case types.Int64:
		i, err := cast.ToInt64E(raw)
		f, isFloat := raw.(float64)
		if err != nil || (isFloat && f != float64(i)) {
			return nil, jiterrors.ErrOutOfRangeCast.New(raw, declared)
		}
		return expression.NewLiteral(handle, i, false), nil
	case types.Float32:
		f, err := cast.ToFloat64E(raw)
		if err != nil || math.Abs(f) > math.MaxFloat32 {
			return nil, jiterrors.ErrOutOfRangeCast.New(raw, declared)
		}
		return expression.NewLiteral(handle, float32(f), false), nil
	case types.Float64:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, jiterrors.ErrOutOfRangeCast.New(raw, declared)
		}
		return expression.NewLiteral(handle, f, false), nil
	case types.String:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, jiterrors.ErrOutOfRangeCast.New(raw, declared)
		}
		return expression.NewLiteral(handle, s, false), nil
	case types.Bool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, jiterrors.ErrOutOfRangeCast.New(raw, declared)
		}
		return expression.NewLiteral(handle, b, false), nil
	default:
		return nil, jiterrors.ErrPlan.New("cannot build a literal of type %s", declared)
	}
}
