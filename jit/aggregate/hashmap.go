// Package aggregate implements the group-by hashmap of §4.4: a hashmap
// keyed by the group-by tuple, built entirely on the variant-vector
// substrate so it never needs to know column types at compile time.
package aggregate

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/pecbali/hyrise-jit/jit/types"
	"github.com/pecbali/hyrise-jit/jit/value"
)

// Kind is the supported aggregate function.
type Kind int

const (
	Count Kind = iota
	Sum
	Min
	Max
	Avg
)

// Spec describes one aggregate to maintain: which kind, which expression
// slot in the runtime tuple supplies its input (empty for Count(*)), and
// the handle its output occupies in the hashmap's aggregate column array.
type Spec struct {
	Kind   Kind
	Input  value.TupleHandle
	Output value.HashmapHandle
	HasInput bool // false for COUNT(*), which reads no column
}

// aggColumn is the per-group state for one Spec. Values holds the
// current accumulated result (for Avg, the running sum) when the input is
// a float type; hasValue implements the null-aware "has any non-null
// input" convention from the Design Notes' resolved open question,
// replacing the source's Min/MaxValue sentinel scheme. avgCount parallels
// Values for Avg only. intAcc parallels Values for Sum/Min/Max/Avg when
// the input is Int32/Int64: accumulation stays in the int64 domain so a
// value outside float64's 53-bit mantissa never loses precision mid-sum;
// Output.DataType only narrows the result once, at Finalize.
type aggColumn struct {
	spec     Spec
	values   *value.VariantVector
	hasValue []bool
	avgCount []int64
	intAcc   []int64
}

// isIntegerDataType reports whether a column's declared type keeps its
// arithmetic in the int64 domain rather than float64 (§3: Int64 is a
// distinct, full-width type, not interchangeable with a narrower float).
func isIntegerDataType(dt types.DataType) bool {
	return dt == types.Int32 || dt == types.Int64
}

func intFromTuple(tuple *value.VariantVector, h value.TupleHandle) int64 {
	switch h.DataType {
	case types.Int32:
		return int64(tuple.GetInt32(h.TupleIndex))
	case types.Int64:
		return tuple.GetInt64(h.TupleIndex)
	default:
		return 0
	}
}

// narrowInt converts an exact int64 accumulator to the declared output
// type: native int32/int64 when the caller asked for one, a single
// (unavoidable, caller-requested) float64 conversion otherwise.
func narrowInt(dt types.DataType, v int64) interface{} {
	switch dt {
	case types.Int32:
		return int32(v)
	case types.Int64:
		return v
	default:
		return float64(v)
	}
}

// Hashmap is the §4.4 group-by state: an index from hash key to the list
// of group row_indexes with that hash (collisions resolved by comparing
// materialized group columns), the append-only group columns, and one
// aggColumn per aggregate.
type Hashmap struct {
	index        map[uint64][]int
	groupHandles []value.HashmapHandle
	groupColumns []*value.VariantVector
	aggregates   []aggColumn

	groups int
}

// NewHashmap builds an empty hashmap for the given group-by columns
// (identified by their position/type/nullability, one HashmapHandle per
// group column) and aggregate specs.
func NewHashmap(groupHandles []value.HashmapHandle, specs []Spec) *Hashmap {
	h := &Hashmap{
		index:        make(map[uint64][]int),
		groupHandles: groupHandles,
		groupColumns: make([]*value.VariantVector, len(groupHandles)),
	}
	for i := range h.groupColumns {
		h.groupColumns[i] = value.NewVariantVector(0)
	}
	h.aggregates = make([]aggColumn, len(specs))
	for i, spec := range specs {
		h.aggregates[i] = aggColumn{spec: spec, values: value.NewVariantVector(0)}
	}
	return h
}

// Groups reports the number of distinct group keys seen so far.
func (h *Hashmap) Groups() int { return h.groups }

// hashRow mixes one group-key tuple into a 64-bit hash using a
// type-specific combine: each column's bytes are folded into a running
// xxhash digest, matching the "hashed with a type-specific mixer" wording
// of §4.4 without branching inside the per-row loop beyond the one switch
// needed to pick each column's byte representation.
func hashRow(tuple *value.VariantVector, handles []value.TupleHandle) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, h := range handles {
		if h.IsNullable && tuple.IsNull(h.TupleIndex) {
			d.Write([]byte{0xff})
			continue
		}
		switch h.DataType {
		case types.Int32:
			binary.LittleEndian.PutUint32(buf[:4], uint32(tuple.GetInt32(h.TupleIndex)))
			d.Write(buf[:4])
		case types.Int64:
			binary.LittleEndian.PutUint64(buf[:], uint64(tuple.GetInt64(h.TupleIndex)))
			d.Write(buf[:])
		case types.Float32:
			binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(tuple.GetFloat32(h.TupleIndex)))
			d.Write(buf[:4])
		case types.Float64:
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(tuple.GetFloat64(h.TupleIndex)))
			d.Write(buf[:])
		case types.String:
			d.Write([]byte(tuple.GetString(h.TupleIndex)))
		case types.Bool:
			if tuple.GetBool(h.TupleIndex) {
				d.Write([]byte{1})
			} else {
				d.Write([]byte{0})
			}
		}
	}
	return d.Sum64()
}

// rowEquals compares the group-key columns of tuple against an existing
// group's row at groupIdx, used to resolve hash collisions.
func (h *Hashmap) rowEquals(tuple *value.VariantVector, handles []value.TupleHandle, groupIdx int) bool {
	for i, th := range handles {
		gh := h.groupHandles[i].AsTupleHandle(groupIdx)
		col := h.groupColumns[i]
		tupleNull := th.IsNullable && tuple.IsNull(th.TupleIndex)
		groupNull := gh.IsNullable && col.IsNull(gh.TupleIndex)
		if tupleNull != groupNull {
			return false
		}
		if tupleNull {
			continue
		}
		if value.Get(tuple, th) != value.Get(col, gh) {
			return false
		}
	}
	return true
}

// Lookup finds or creates the group for the row-key values tuple holds at
// the handles given, returning the group's row_index. New groups append
// one slot to every group column (grow_by_one) and to every aggregate
// column, seeded with Count=0 / null for the others.
func (h *Hashmap) Lookup(tuple *value.VariantVector, handles []value.TupleHandle) int {
	key := hashRow(tuple, handles)
	for _, candidate := range h.index[key] {
		if h.rowEquals(tuple, handles, candidate) {
			return candidate
		}
	}

	groupIdx := h.groups
	for i, th := range handles {
		col := h.groupColumns[i]
		col.Grow()
		gh := h.groupHandles[i].AsTupleHandle(groupIdx)
		if th.IsNullable && tuple.IsNull(th.TupleIndex) {
			value.SetNullValue(col, gh)
		} else {
			value.Set(col, gh, value.Get(tuple, th))
		}
	}
	for i := range h.aggregates {
		a := &h.aggregates[i]
		a.values.Grow()
		a.hasValue = append(a.hasValue, false)
		if a.spec.Kind == Avg {
			a.avgCount = append(a.avgCount, 0)
		}
		if isIntegerDataType(a.spec.Input.DataType) {
			a.intAcc = append(a.intAcc, 0)
		}
	}
	h.index[key] = append(h.index[key], groupIdx)
	h.groups++
	return groupIdx
}

// Update applies every aggregate spec's per-kind update rule (§4.4's
// table) to groupIdx using tuple's current values.
func (h *Hashmap) Update(tuple *value.VariantVector, groupIdx int) {
	for i := range h.aggregates {
		a := &h.aggregates[i]
		out := a.spec.Output.AsTupleHandle(groupIdx)
		switch a.spec.Kind {
		case Count:
			cur := int64(0)
			if a.hasValue[groupIdx] {
				cur = a.values.GetInt64(out.TupleIndex)
			}
			a.values.SetInt64(out.TupleIndex, cur+1)
			a.hasValue[groupIdx] = true
		case Sum:
			in := a.spec.Input
			if in.IsNullable && tuple.IsNull(in.TupleIndex) {
				continue // null x is skipped, per §4.4
			}
			if isIntegerDataType(in.DataType) {
				x := intFromTuple(tuple, in)
				cur := int64(0)
				if a.hasValue[groupIdx] {
					cur = a.intAcc[groupIdx]
				}
				a.intAcc[groupIdx] = cur + x
			} else {
				x := numericAsFloat64(tuple, in)
				cur := float64(0)
				if a.hasValue[groupIdx] {
					cur = a.values.GetFloat64(out.TupleIndex)
				}
				a.values.SetFloat64(out.TupleIndex, cur+x)
			}
			a.hasValue[groupIdx] = true
		case Min, Max:
			in := a.spec.Input
			if in.IsNullable && tuple.IsNull(in.TupleIndex) {
				continue
			}
			if isIntegerDataType(in.DataType) {
				x := intFromTuple(tuple, in)
				if !a.hasValue[groupIdx] {
					a.intAcc[groupIdx] = x
					a.hasValue[groupIdx] = true
					continue
				}
				cur := a.intAcc[groupIdx]
				if (a.spec.Kind == Min && x < cur) || (a.spec.Kind == Max && x > cur) {
					a.intAcc[groupIdx] = x
				}
				continue
			}
			x := numericAsFloat64(tuple, in)
			if !a.hasValue[groupIdx] {
				a.values.SetFloat64(out.TupleIndex, x)
				a.hasValue[groupIdx] = true
				continue
			}
			cur := a.values.GetFloat64(out.TupleIndex)
			if (a.spec.Kind == Min && x < cur) || (a.spec.Kind == Max && x > cur) {
				a.values.SetFloat64(out.TupleIndex, x)
			}
		case Avg:
			in := a.spec.Input
			if in.IsNullable && tuple.IsNull(in.TupleIndex) {
				continue
			}
			if isIntegerDataType(in.DataType) {
				x := intFromTuple(tuple, in)
				cur := int64(0)
				if a.hasValue[groupIdx] {
					cur = a.intAcc[groupIdx]
				}
				a.intAcc[groupIdx] = cur + x
			} else {
				x := numericAsFloat64(tuple, in)
				cur := float64(0)
				if a.hasValue[groupIdx] {
					cur = a.values.GetFloat64(out.TupleIndex)
				}
				a.values.SetFloat64(out.TupleIndex, cur+x)
			}
			a.avgCount[groupIdx]++
			a.hasValue[groupIdx] = true
		}
	}
}

// numericAsFloat64 widens any numeric tuple slot to float64 for
// accumulation. Finalize returns that float64 accumulator as is; the
// declared output type is applied only to int64-domain accumulators.
func numericAsFloat64(tuple *value.VariantVector, h value.TupleHandle) float64 {
	switch h.DataType {
	case types.Int32:
		return float64(tuple.GetInt32(h.TupleIndex))
	case types.Int64:
		return float64(tuple.GetInt64(h.TupleIndex))
	case types.Float32:
		return float64(tuple.GetFloat32(h.TupleIndex))
	case types.Float64:
		return tuple.GetFloat64(h.TupleIndex)
	default:
		return 0
	}
}

// Result is one finished group: its key values and its finished aggregate
// values (nil entries mean the group had zero non-null inputs for that
// aggregate, per §4.4: "produces a null").
type Result struct {
	Keys    []interface{}
	Aggs    []interface{}
}

// Finalize divides Avg sums by counts and returns every group, in
// row_index order. Called once at end-of-query (§4.5); the hashmap is not
// usable afterward.
func (h *Hashmap) Finalize() []Result {
	results := make([]Result, h.groups)
	for g := 0; g < h.groups; g++ {
		keys := make([]interface{}, len(h.groupHandles))
		for i, gh := range h.groupHandles {
			th := gh.AsTupleHandle(g)
			keys[i] = value.Get(h.groupColumns[i], th)
		}
		aggs := make([]interface{}, len(h.aggregates))
		for i := range h.aggregates {
			a := &h.aggregates[i]
			if !a.hasValue[g] && a.spec.Kind != Count {
				aggs[i] = nil
				continue
			}
			aggs[i] = a.finalValue(g)
		}
		results[g] = Result{Keys: keys, Aggs: aggs}
	}
	return results
}

func (a *aggColumn) finalValue(groupIdx int) interface{} {
	out := a.spec.Output.AsTupleHandle(groupIdx)
	intDomain := isIntegerDataType(a.spec.Input.DataType)
	switch a.spec.Kind {
	case Count:
		if !a.hasValue[groupIdx] {
			return int64(0)
		}
		return a.values.GetInt64(out.TupleIndex)
	case Avg:
		if a.avgCount[groupIdx] == 0 {
			return nil
		}
		sum := a.values.GetFloat64(out.TupleIndex)
		if intDomain {
			sum = float64(a.intAcc[groupIdx])
		}
		return sum / float64(a.avgCount[groupIdx])
	default: // Sum, Min, Max
		if intDomain {
			return narrowInt(a.spec.Output.DataType, a.intAcc[groupIdx])
		}
		return a.values.GetFloat64(out.TupleIndex)
	}
}
