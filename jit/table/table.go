// Package table models the storage-side inputs this core consumes (§6):
// a Table made of Chunks, each chunk exposing its columns as segments
// (dense, dictionary, or reference) plus its MVCC arrays.
package table

import "math"

// MVCCMaxCommitID marks "never ends" for a freshly produced row, per §6's
// output-chunk contract (initial begin cid = 0, end cid = MAX).
const MVCCMaxCommitID = math.MaxUint64

// MVCC holds the per-row visibility arrays for one chunk, materialized as
// plain vectors (not atomics) at chunk start so Validate never touches
// atomic memory in the hot path (§4.3).
type MVCC struct {
	BeginCIDs []uint64
	EndCIDs   []uint64
	RowTIDs   []uint64
}

func NewMVCC(rows int) *MVCC {
	return &MVCC{
		BeginCIDs: make([]uint64, rows),
		EndCIDs:   make([]uint64, rows),
		RowTIDs:   make([]uint64, rows),
	}
}

// NewScanMVCC builds the MVCC block a scan-producing query attaches to its
// output chunk: every row visible to everyone from commit 0 onward.
func NewScanMVCC(rows int) *MVCC {
	m := NewMVCC(rows)
	for i := range m.EndCIDs {
		m.EndCIDs[i] = MVCCMaxCommitID
	}
	return m
}

// SegmentKind distinguishes the three physical encodings §4.1 requires
// readers to support.
type SegmentKind int

const (
	Dense SegmentKind = iota
	Dictionary
	Reference
)

func (k SegmentKind) String() string {
	switch k {
	case Dense:
		return "dense"
	case Dictionary:
		return "dictionary"
	case Reference:
		return "reference"
	default:
		return "unknown"
	}
}

// DictNullID is the sentinel attribute-vector id meaning SQL NULL in a
// dictionary segment, per §6.
const DictNullID = ^uint32(0)

// Segment is one column's data within one chunk. Exactly one of the typed
// payload fields is meaningful, selected by Kind.
type Segment struct {
	Kind SegmentKind

	// Dense: a value vector plus an optional parallel null vector (nil
	// means the column is declared non-nullable and carries no nulls).
	DenseValues interface{} // []int32 | []int64 | []float32 | []float64 | []string | []bool
	DenseNulls  []bool

	// Dictionary: attribute_vector -> dictionary[T]. AttrIDs holds
	// DictNullID for SQL NULL instead of indexing Dict.
	AttrIDs []uint32
	Dict    interface{} // []int32 | []int64 | []float32 | []float64 | []string

	// Reference: a position list into the Referenced table's segment for
	// the same column index. Readers must follow this indirection on
	// every access (§4.1).
	Positions  []int
	Referenced *Table
	RefColumn  int
}

// Chunk is a horizontal partition of a table: the unit of scan scheduling.
// Columns holds one Segment per column the plan may read; MVCC is nil for
// a reference chunk, whose visibility is looked up through its reference
// segment's position list in the referenced table.
type Chunk struct {
	Rows    int
	Columns []Segment
	MVCC    *MVCC
}

// Table is a sequence of chunks. It carries no schema: a plan's
// ColumnBindings map chunk column indexes to TupleHandles, and the jit core
// never inspects SQL-level names.
type Table struct {
	Chunks []Chunk
}

// Locate maps a flat row position (as stored in a reference segment's
// position list) to the (chunkIndex, rowIndex) pair within t that holds
// it. Positions are assigned densely in chunk order at table-build time.
func (t *Table) Locate(pos int) (chunkIndex, rowIndex int) {
	for i, c := range t.Chunks {
		if pos < c.Rows {
			return i, pos
		}
		pos -= c.Rows
	}
	panic("table: position out of range")
}
