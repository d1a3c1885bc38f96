// Package value implements the variant tuple store: a struct-of-parallel
// vectors holding one value per (type, slot) pair, the handles that name a
// slot without referencing the vector, and the typed accessors used by the
// expression tree and operator chain.
package value

import (
	"fmt"

	"github.com/pecbali/hyrise-jit/jit/types"
)

// VariantVector is a struct-of-parallel-vectors: one vector per non-Null
// data type plus a parallel is_null bit vector. Slot i has a value in
// exactly one of the typed vectors; the others are simply unused at i.
// Bool values live in the int32 vector (0/1), per §3 — callers never see
// the representation, only the Bool accessors.
type VariantVector struct {
	int32s   []int32
	int64s   []int64
	float32s []float32
	float64s []float64
	strings  []string
	isNull   []bool
}

// NewVariantVector allocates a vector with size slots in every typed
// vector plus the null bitmap. All slots start non-null and zero-valued;
// callers populate them through the typed setters below.
func NewVariantVector(size int) *VariantVector {
	return &VariantVector{
		int32s:   make([]int32, size),
		int64s:   make([]int64, size),
		float32s: make([]float32, size),
		float64s: make([]float64, size),
		strings:  make([]string, size),
		isNull:   make([]bool, size),
	}
}

func (v *VariantVector) Len() int { return len(v.isNull) }

// Grow extends every typed vector and the null bitmap by one slot,
// appending a zero value and a non-null bit. Used by the aggregate hashmap's
// grow_by_one when a new group is created.
func (v *VariantVector) Grow() {
	v.int32s = append(v.int32s, 0)
	v.int64s = append(v.int64s, 0)
	v.float32s = append(v.float32s, 0)
	v.float64s = append(v.float64s, 0)
	v.strings = append(v.strings, "")
	v.isNull = append(v.isNull, false)
}

func (v *VariantVector) IsNull(i int) bool     { return v.isNull[i] }
func (v *VariantVector) SetNull(i int, b bool) { v.isNull[i] = b }

func (v *VariantVector) GetInt32(i int) int32     { return v.int32s[i] }
func (v *VariantVector) SetInt32(i int, x int32)  { v.int32s[i] = x }
func (v *VariantVector) GetInt64(i int) int64     { return v.int64s[i] }
func (v *VariantVector) SetInt64(i int, x int64)  { v.int64s[i] = x }
func (v *VariantVector) GetFloat32(i int) float32 { return v.float32s[i] }
func (v *VariantVector) SetFloat32(i int, x float32) {
	v.float32s[i] = x
}
func (v *VariantVector) GetFloat64(i int) float64    { return v.float64s[i] }
func (v *VariantVector) SetFloat64(i int, x float64) { v.float64s[i] = x }
func (v *VariantVector) GetString(i int) string      { return v.strings[i] }
func (v *VariantVector) SetString(i int, x string)   { v.strings[i] = x }

// GetBool/SetBool fold through the int32 vector, per the representation
// note in §3: Bool is Int32 (0/1) at the value layer.
func (v *VariantVector) GetBool(i int) bool { return v.int32s[i] != 0 }
func (v *VariantVector) SetBool(i int, b bool) {
	if b {
		v.int32s[i] = 1
	} else {
		v.int32s[i] = 0
	}
}

// TupleHandle is a plan-time descriptor naming a slot: (data_type,
// is_nullable, tuple_index). It does not reference any vector. Two handles
// are equal iff they designate the same slot in any context; handles are
// produced once at plan time and are immutable thereafter.
type TupleHandle struct {
	DataType   types.DataType
	IsNullable bool
	TupleIndex int
}

func (h TupleHandle) String() string {
	return fmt.Sprintf("x%d:%s", h.TupleIndex, h.DataType)
}

// HashmapHandle is like TupleHandle but indexes a column in the hashmap's
// column array; accesses additionally take a row_index to select the group.
type HashmapHandle struct {
	DataType   types.DataType
	IsNullable bool
	ColumnIndex int
}

func (h HashmapHandle) String() string {
	return fmt.Sprintf("g%d:%s", h.ColumnIndex, h.DataType)
}

// AsTupleHandle reinterprets h as a TupleHandle addressing rowIndex within
// whichever per-column VariantVector h.ColumnIndex selects, so the same
// Get/Set accessors serve both the runtime tuple and the hashmap's group
// and aggregate columns.
func (h HashmapHandle) AsTupleHandle(rowIndex int) TupleHandle {
	return TupleHandle{DataType: h.DataType, IsNullable: h.IsNullable, TupleIndex: rowIndex}
}

// Get reads the slot h names out of vv, dispatching once on h.DataType to
// the monomorphic accessor for that type. The dispatch happens at the call
// site that already knows the type statically (every caller either holds a
// TupleHandle produced at plan time or is itself generated per type); no
// hot-loop code branches on DataType merely to decide how to interpret a
// value already known to be, say, an Int64.
func Get(vv *VariantVector, h TupleHandle) interface{} {
	if h.IsNullable && vv.IsNull(h.TupleIndex) {
		return nil
	}
	switch h.DataType {
	case types.Int32:
		return vv.GetInt32(h.TupleIndex)
	case types.Int64:
		return vv.GetInt64(h.TupleIndex)
	case types.Float32:
		return vv.GetFloat32(h.TupleIndex)
	case types.Float64:
		return vv.GetFloat64(h.TupleIndex)
	case types.String:
		return vv.GetString(h.TupleIndex)
	case types.Bool:
		return vv.GetBool(h.TupleIndex)
	default:
		return nil
	}
}

// Set writes val into the slot h names, and clears the null bit if h is
// nullable. val must already be the Go type h.DataType implies; this is
// enforced by construction (expression evaluation / segment reading),
// never by a runtime type check here.
func Set(vv *VariantVector, h TupleHandle, val interface{}) {
	if h.IsNullable {
		vv.SetNull(h.TupleIndex, false)
	}
	switch h.DataType {
	case types.Int32:
		vv.SetInt32(h.TupleIndex, val.(int32))
	case types.Int64:
		vv.SetInt64(h.TupleIndex, val.(int64))
	case types.Float32:
		vv.SetFloat32(h.TupleIndex, val.(float32))
	case types.Float64:
		vv.SetFloat64(h.TupleIndex, val.(float64))
	case types.String:
		vv.SetString(h.TupleIndex, val.(string))
	case types.Bool:
		vv.SetBool(h.TupleIndex, val.(bool))
	}
}

// SetNullValue marks h's slot null in vv without touching the typed
// vectors (their old contents at that slot are simply unused, per §3).
func SetNullValue(vv *VariantVector, h TupleHandle) {
	if h.IsNullable {
		vv.SetNull(h.TupleIndex, true)
	}
}
