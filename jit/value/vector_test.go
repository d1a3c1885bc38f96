package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/pecbali/hyrise-jit/jit/types"
)

func TestGrowExtendsEveryParallelVectorInLockstep(t *testing.T) {
	vv := NewVariantVector(2)
	vv.SetInt32(0, 7)
	vv.SetString(1, "x")

	vv.Grow()

	want := &VariantVector{
		int32s:   []int32{7, 0, 0},
		int64s:   []int64{0, 0, 0},
		float32s: []float32{0, 0, 0},
		float64s: []float64{0, 0, 0},
		strings:  []string{"", "x", ""},
		isNull:   []bool{false, false, false},
	}
	if diff := cmp.Diff(want, vv, cmp.AllowUnexported(VariantVector{})); diff != "" {
		t.Fatalf("Grow produced mismatched vector state (-want +got):\n%s", diff)
	}
}

func TestGetSetRoundTripsThroughTupleHandle(t *testing.T) {
	vv := NewVariantVector(1)
	h := TupleHandle{DataType: types.Float64, IsNullable: true, TupleIndex: 0}

	Set(vv, h, 3.5)
	require.Equal(t, 3.5, Get(vv, h))

	SetNullValue(vv, h)
	require.Nil(t, Get(vv, h))
}
