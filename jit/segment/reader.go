// Package segment implements the readers and writers that move one value
// at a time between a chunk's column segments and the runtime tuple (§4.1).
package segment

import (
	"github.com/pecbali/hyrise-jit/jit/jiterrors"
	"github.com/pecbali/hyrise-jit/jit/table"
	"github.com/pecbali/hyrise-jit/jit/value"
)

// Reader is bound at chunk-start to one concrete segment of the current
// chunk and exposes the two operations §4.1 requires. A nil, false return
// from ReadAndGet means SQL NULL (Option<T> with no value).
type Reader interface {
	// ReadValue materializes the column's value at row into tuple's slot,
	// setting the null bit if applicable.
	ReadValue(tuple *value.VariantVector, row int)
	// ReadAndGet materializes and returns the value without necessarily
	// storing it in the tuple.
	ReadAndGet(row int) (interface{}, bool)
	// Handle names the tuple slot this reader is wired to.
	Handle() value.TupleHandle
}

// denseReader reads a dense typed vector segment, with an optional
// parallel nulls vector.
type denseReader struct {
	handle value.TupleHandle
	seg    table.Segment
}

// NewReader builds the appropriate Reader for seg's Kind, wired to write
// into handle's slot. One Reader is instantiated per column the plan
// actually reads (§4.1). An unrecognized segment kind is an IoError
// (§7): a chunk whose on-disk layout doesn't match any known encoding is
// a storage fault, not a programming error the caller should panic on.
func NewReader(handle value.TupleHandle, seg table.Segment) (Reader, error) {
	switch seg.Kind {
	case table.Dense:
		return &denseReader{handle: handle, seg: seg}, nil
	case table.Dictionary:
		return &dictReader{handle: handle, seg: seg}, nil
	case table.Reference:
		return &refReader{handle: handle, seg: seg}, nil
	default:
		return nil, jiterrors.ErrIO.New(seg.Kind)
	}
}

func (r *denseReader) Handle() value.TupleHandle { return r.handle }

func (r *denseReader) ReadAndGet(row int) (interface{}, bool) {
	if r.seg.DenseNulls != nil && r.seg.DenseNulls[row] {
		return nil, false
	}
	switch v := r.seg.DenseValues.(type) {
	case []int32:
		return v[row], true
	case []int64:
		return v[row], true
	case []float32:
		return v[row], true
	case []float64:
		return v[row], true
	case []string:
		return v[row], true
	case []bool:
		return v[row], true
	default:
		return nil, false
	}
}

func (r *denseReader) ReadValue(tuple *value.VariantVector, row int) {
	val, ok := r.ReadAndGet(row)
	if !ok {
		value.SetNullValue(tuple, r.handle)
		return
	}
	value.Set(tuple, r.handle, val)
}

// dictReader reads a dictionary segment: attribute_vector -> dictionary[T],
// with table.DictNullID as the explicit null sentinel.
type dictReader struct {
	handle value.TupleHandle
	seg    table.Segment
}

func (r *dictReader) Handle() value.TupleHandle { return r.handle }

func (r *dictReader) ReadAndGet(row int) (interface{}, bool) {
	id := r.seg.AttrIDs[row]
	if id == table.DictNullID {
		return nil, false
	}
	switch dict := r.seg.Dict.(type) {
	case []int32:
		return dict[id], true
	case []int64:
		return dict[id], true
	case []float32:
		return dict[id], true
	case []float64:
		return dict[id], true
	case []string:
		return dict[id], true
	default:
		return nil, false
	}
}

func (r *dictReader) ReadValue(tuple *value.VariantVector, row int) {
	val, ok := r.ReadAndGet(row)
	if !ok {
		value.SetNullValue(tuple, r.handle)
		return
	}
	value.Set(tuple, r.handle, val)
}

// refReader follows a position list into a referenced table's segment for
// every access, per §4.1's reference-indirection requirement.
type refReader struct {
	handle value.TupleHandle
	seg    table.Segment
}

func (r *refReader) Handle() value.TupleHandle { return r.handle }

// resolve follows the position list for row to the underlying reader and
// row index in the referenced table, re-resolving on every access per
// §4.1 ("reference readers must follow the indirection... for each
// access"). §7 forbids raising an error from inside the per-row loop, so
// an underlying segment too corrupt to bind (ok=false) maps to SQL NULL
// here instead — the chunk-start binding of the top-level reader is
// where a malformed segment kind aborts the query.
func (r *refReader) resolve(row int) (Reader, int, bool) {
	pos := r.seg.Positions[row]
	chunkIdx, rowIdx := r.seg.Referenced.Locate(pos)
	underlying := r.seg.Referenced.Chunks[chunkIdx].Columns[r.seg.RefColumn]
	reader, err := NewReader(r.handle, underlying)
	if err != nil {
		return nil, 0, false
	}
	return reader, rowIdx, true
}

func (r *refReader) ReadAndGet(row int) (interface{}, bool) {
	reader, rowIdx, ok := r.resolve(row)
	if !ok {
		return nil, false
	}
	return reader.ReadAndGet(rowIdx)
}

func (r *refReader) ReadValue(tuple *value.VariantVector, row int) {
	reader, rowIdx, ok := r.resolve(row)
	if !ok {
		value.SetNullValue(tuple, r.handle)
		return
	}
	reader.ReadValue(tuple, rowIdx)
}
