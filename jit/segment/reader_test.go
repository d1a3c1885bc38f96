package segment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pecbali/hyrise-jit/jit/jiterrors"
	"github.com/pecbali/hyrise-jit/jit/table"
	"github.com/pecbali/hyrise-jit/jit/types"
	"github.com/pecbali/hyrise-jit/jit/value"
)

func TestDenseReaderRoundTripsValuesAndNulls(t *testing.T) {
	handle := value.TupleHandle{DataType: types.Int32, IsNullable: true, TupleIndex: 0}
	seg := table.Segment{
		Kind:        table.Dense,
		DenseValues: []int32{10, 20, 30},
		DenseNulls:  []bool{false, true, false},
	}

	r, err := NewReader(handle, seg)
	require.NoError(t, err)

	v, ok := r.ReadAndGet(0)
	require.True(t, ok)
	require.Equal(t, int32(10), v)

	_, ok = r.ReadAndGet(1)
	require.False(t, ok, "DenseNulls[1] marks this row SQL NULL regardless of the stored value")

	v, ok = r.ReadAndGet(2)
	require.True(t, ok)
	require.Equal(t, int32(30), v)
}

// TestDictReaderRoundTripsDictionaryAndNullSentinel exercises the
// attribute_vector -> dictionary[T] round trip plus table.DictNullID, the
// explicit null sentinel a dictionary segment uses instead of a parallel
// nulls vector.
func TestDictReaderRoundTripsDictionaryAndNullSentinel(t *testing.T) {
	handle := value.TupleHandle{DataType: types.String, IsNullable: true, TupleIndex: 0}
	seg := table.Segment{
		Kind:    table.Dictionary,
		Dict:    []string{"alice", "bob", "carol"},
		AttrIDs: []uint32{1, table.DictNullID, 0, 2},
	}

	r, err := NewReader(handle, seg)
	require.NoError(t, err)

	v, ok := r.ReadAndGet(0)
	require.True(t, ok)
	require.Equal(t, "bob", v)

	_, ok = r.ReadAndGet(1)
	require.False(t, ok, "DictNullID at this row must decode to SQL NULL, not an out-of-range dictionary lookup")

	v, ok = r.ReadAndGet(2)
	require.True(t, ok)
	require.Equal(t, "alice", v)

	v, ok = r.ReadAndGet(3)
	require.True(t, ok)
	require.Equal(t, "carol", v)

	tuple := value.NewVariantVector(1)
	r.ReadValue(tuple, 1)
	require.True(t, tuple.IsNull(0), "ReadValue must set the null bit for a DictNullID row")
}

// TestRefReaderFollowsPositionListIntoReferencedSegment exercises the
// reference-segment indirection §4.1 requires: every access re-resolves
// through the position list into the referenced table's own segment for
// the same column.
func TestRefReaderFollowsPositionListIntoReferencedSegment(t *testing.T) {
	handle := value.TupleHandle{DataType: types.Int32, IsNullable: false, TupleIndex: 0}

	referenced := &table.Table{
		Chunks: []table.Chunk{
			{
				Rows: 3,
				Columns: []table.Segment{
					{Kind: table.Dense, DenseValues: []int32{100, 200, 300}},
				},
			},
			{
				Rows: 2,
				Columns: []table.Segment{
					{Kind: table.Dense, DenseValues: []int32{400, 500}},
				},
			},
		},
	}

	seg := table.Segment{
		Kind: table.Reference,
		// Position 4 lands in the second chunk (rows 0-2 in chunk 0,
		// positions 3-4 in chunk 1); position 1 stays in chunk 0.
		Positions:  []int{4, 1},
		Referenced: referenced,
		RefColumn:  0,
	}

	r, err := NewReader(handle, seg)
	require.NoError(t, err)

	v, ok := r.ReadAndGet(0)
	require.True(t, ok)
	require.Equal(t, int32(500), v)

	v, ok = r.ReadAndGet(1)
	require.True(t, ok)
	require.Equal(t, int32(200), v)

	tuple := value.NewVariantVector(1)
	r.ReadValue(tuple, 0)
	require.Equal(t, int32(500), tuple.GetInt32(0))
}

func TestRefReaderResolveFailureMapsToNullInsteadOfAbortingRow(t *testing.T) {
	handle := value.TupleHandle{DataType: types.Int32, IsNullable: true, TupleIndex: 0}

	referenced := &table.Table{
		Chunks: []table.Chunk{
			{
				Rows: 1,
				Columns: []table.Segment{
					{Kind: table.SegmentKind(99), DenseValues: []int32{1}},
				},
			},
		},
	}

	seg := table.Segment{
		Kind:       table.Reference,
		Positions:  []int{0},
		Referenced: referenced,
		RefColumn:  0,
	}

	r, err := NewReader(handle, seg)
	require.NoError(t, err)

	_, ok := r.ReadAndGet(0)
	require.False(t, ok, "an unresolvable underlying segment must read as SQL NULL, per §7's never-raise-mid-row contract")

	tuple := value.NewVariantVector(1)
	r.ReadValue(tuple, 0)
	require.True(t, tuple.IsNull(0))
}

func TestNewReaderRejectsUnknownSegmentKindAsIoError(t *testing.T) {
	handle := value.TupleHandle{DataType: types.Int32, IsNullable: false, TupleIndex: 0}
	seg := table.Segment{Kind: table.SegmentKind(99)}

	_, err := NewReader(handle, seg)
	require.Error(t, err)
	require.True(t, jiterrors.ErrIO.Is(err))
}
