// Package runtime implements the per-query mutable bundle every operator
// and expression node reads and writes during execution (§3's
// RuntimeContext).
package runtime

import (
	"sync"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/pecbali/hyrise-jit/jit/aggregate"
	"github.com/pecbali/hyrise-jit/jit/config"
	"github.com/pecbali/hyrise-jit/jit/metrics"
	"github.com/pecbali/hyrise-jit/jit/segment"
	"github.com/pecbali/hyrise-jit/jit/table"
	"github.com/pecbali/hyrise-jit/jit/types"
	"github.com/pecbali/hyrise-jit/jit/value"
)

// Snapshot is the MVCC visibility context for the current query: either a
// direct reference to the current chunk's MVCC arrays, or, for reference
// input, the referenced base table plus a position list used to look the
// MVCC arrays up indirectly (§3, §4.3).
type Snapshot struct {
	TransactionID    uint64
	SnapshotCommitID uint64

	// Direct is set when the current input is a base-table chunk.
	Direct *table.MVCC

	// Indirect fields are set when the current input is a reference
	// chunk: MVCC must be looked up through Positions into RefTable.
	RefTable   *table.Table
	Positions  []int
}

// unlockFunc is stored rather than the *sync.RWMutex itself: the access
// path never dereferences the MVCC arrays through the guard, only the
// arrays copied out at chunk start, but the context holds the unlock
// function so the lock's lifetime visibly spans the chunk (§5).
type unlockFunc func()

// Context is the RuntimeContext of §3: created once per query, with its
// per-chunk fields rebound before each input chunk.
type Context struct {
	// QueryID traces this execution across logs and trace spans; allocated
	// by the driver via uuid.NewV4 at the start of every Run.
	QueryID uuid.UUID

	Config config.Config

	ChunkID   int
	ChunkSize int
	RowOffset int

	Tuple *value.VariantVector

	Readers []segment.Reader
	Writers []segment.Writer

	Hashmap *aggregate.Hashmap

	Snapshot Snapshot

	OutChunk *OutputAccumulator

	// LimitRows, when non-nil, is the remaining row budget for a Limit
	// operator; decremented as rows pass through.
	LimitRows *int

	// Cancelled is not read by the driver: Driver.Run checks its
	// context.Context for cancellation at chunk boundaries instead (§5).
	Cancelled bool

	Metrics *metrics.Collector
	Log     *logrus.Entry

	unlock unlockFunc
	mu     sync.Mutex
}

// OutputAccumulator collects surviving tuples' output columns chunk by
// chunk via the bound Writers, then finalizes into table.Chunk values.
type OutputAccumulator struct {
	rows     int
	writers  []segment.Writer
	dataType []types.DataType
	nullable []bool
	chunks   []table.Chunk
}

// NewOutputAccumulator builds an accumulator for the given output columns.
// dataType/nullable describe each writer so a fresh one can be built after
// every FinalizeChunk.
func NewOutputAccumulator(dataType []types.DataType, nullable []bool) *OutputAccumulator {
	o := &OutputAccumulator{dataType: dataType, nullable: nullable}
	o.writers = make([]segment.Writer, len(dataType))
	for i := range dataType {
		o.writers[i] = segment.NewWriter(dataType[i], nullable[i])
	}
	return o
}

// Append writes every column from tuple for one surviving row.
func (o *OutputAccumulator) Append(tuple *value.VariantVector, handles []value.TupleHandle) {
	for i, w := range o.writers {
		w.Write(tuple, handles[i])
	}
	o.rows++
}

// FinalizeChunk snapshots the accumulated rows into a table.Chunk with a
// fresh MVCC block (begin=0, end=MAX per §6) and resets for the next
// chunk.
func (o *OutputAccumulator) FinalizeChunk() table.Chunk {
	cols := make([]table.Segment, len(o.writers))
	for i, w := range o.writers {
		cols[i] = w.Segment()
	}
	chunk := table.Chunk{Rows: o.rows, Columns: cols, MVCC: table.NewScanMVCC(o.rows)}
	o.chunks = append(o.chunks, chunk)
	o.rows = 0
	for i := range o.writers {
		o.writers[i] = segment.NewWriter(o.dataType[i], o.nullable[i])
	}
	return chunk
}

// Chunks returns every chunk finalized so far.
func (o *OutputAccumulator) Chunks() []table.Chunk { return o.chunks }

// BindChunk rebinds the context's per-chunk fields ahead of processing a
// new input chunk: MVCC snapshot, the lock guard that keeps it valid, and
// row offset reset to zero.
func (c *Context) BindChunk(chunkID int, rows int, snap Snapshot, unlock unlockFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unlock != nil {
		c.unlock()
	}
	c.ChunkID = chunkID
	c.ChunkSize = rows
	c.RowOffset = 0
	c.Snapshot = snap
	c.unlock = unlock
}

// ReleaseChunk drops the read lock held for the current chunk's lifetime.
func (c *Context) ReleaseChunk() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unlock != nil {
		c.unlock()
		c.unlock = nil
	}
}
