// Package driver orchestrates one query end to end: it owns the
// RuntimeContext, binds a fresh snapshot and reader set at each input
// chunk, drives the Read.Consume call once per row, and finalizes either
// an output table (scan queries) or the aggregate groups (group-by
// queries) once every chunk has been consumed (§4.5, §5).
package driver

import (
	stdcontext "context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/pecbali/hyrise-jit/jit/aggregate"
	"github.com/pecbali/hyrise-jit/jit/config"
	"github.com/pecbali/hyrise-jit/jit/metrics"
	"github.com/pecbali/hyrise-jit/jit/plan"
	"github.com/pecbali/hyrise-jit/jit/runtime"
	"github.com/pecbali/hyrise-jit/jit/segment"
	"github.com/pecbali/hyrise-jit/jit/table"
	"github.com/pecbali/hyrise-jit/jit/types"
	"github.com/pecbali/hyrise-jit/jit/value"
)

// Driver runs one Plan against one input table. A Driver is cheap to
// build per query; the Plan it wraps is the thing worth caching across
// queries with the same shape (see Plan.CacheKey).
type Driver struct {
	Plan    *plan.Plan
	Config  config.Config
	Metrics *metrics.Collector
	Log     *logrus.Entry
	Tracer  opentracing.Tracer

	// lock guards the input table's MVCC arrays for a chunk's lifetime.
	// A real storage engine would take this per-table or per-chunk; one
	// lock per Driver is enough to exercise §5's "store the unlock
	// function, not the mutex" discipline without inventing storage-layer
	// locking this core doesn't own.
	lock sync.RWMutex
}

// Result is the terminal output of a query: exactly one of Chunks or
// Aggregates is populated, matching Plan.IsAggregate.
type Result struct {
	Chunks     []table.Chunk
	Aggregates []aggregate.Result
}

// New builds a Driver for plan p. tracer, log and mcol may be nil, in
// which case a no-op tracer, a default logrus logger (writing to stderr)
// and a fresh unregistered Collector are used.
func New(p *plan.Plan, cfg config.Config, mcol *metrics.Collector, log *logrus.Entry, tracer opentracing.Tracer) *Driver {
	if tracer == nil {
		tracer = opentracing.NoopTracer{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	if mcol == nil {
		mcol = metrics.NewCollector()
	}
	return &Driver{Plan: p, Config: cfg, Metrics: mcol, Log: log, Tracer: tracer}
}

// Run executes the plan against input under the given snapshot. gctx is
// checked for cancellation only at chunk boundaries (§5); a row loop in
// progress always finishes its current chunk.
func (d *Driver) Run(gctx stdcontext.Context, input *table.Table, txID, snapshotCommitID uint64) (Result, error) {
	queryID := uuid.NewV4()
	log := d.Log.WithField("query_id", queryID.String())

	span := d.Tracer.StartSpan("jit.query")
	span.SetTag("query_id", queryID.String())
	defer span.Finish()

	start := time.Now()
	defer func() {
		if d.Metrics != nil {
			d.Metrics.QueryLatency.Observe(time.Since(start).Seconds())
		}
	}()

	rctx := &runtime.Context{
		QueryID: queryID,
		Config:  d.Config,
		Tuple:   value.NewVariantVector(d.Plan.TupleSize),
		Metrics: d.Metrics,
		Log:     log,
	}

	if d.Plan.IsAggregate() {
		rctx.Hashmap = d.Plan.NewHashmap()
	} else {
		dataTypes := make([]types.DataType, len(d.Plan.Output))
		nullables := make([]bool, len(d.Plan.Output))
		for i, c := range d.Plan.Output {
			dataTypes[i] = c.Handle.DataType
			nullables[i] = c.Nullable
		}
		rctx.OutChunk = runtime.NewOutputAccumulator(dataTypes, nullables)
		if d.Plan.LimitRows != nil {
			remaining := *d.Plan.LimitRows
			rctx.LimitRows = &remaining
		}
	}

	chain := d.Plan.Build(d.Config)

	for chunkIdx, chunk := range input.Chunks {
		if gctx.Err() != nil {
			log.WithError(gctx.Err()).Warn("jit: query cancelled at chunk boundary")
			break
		}

		chunkSpan := d.Tracer.StartSpan("jit.chunk", opentracing.ChildOf(span.Context()))
		chunkSpan.SetTag("chunk_index", chunkIdx)
		chunkSpan.SetTag("rows", chunk.Rows)

		readers := make([]segment.Reader, len(d.Plan.Columns))
		for i, cb := range d.Plan.Columns {
			r, err := segment.NewReader(cb.Handle, chunk.Columns[cb.ChunkColumnIndex])
			if err != nil {
				chunkSpan.Finish()
				return Result{}, err
			}
			readers[i] = r
		}
		rctx.Readers = readers

		d.lock.RLock()
		snap := runtime.Snapshot{TransactionID: txID, SnapshotCommitID: snapshotCommitID}
		if chunk.MVCC != nil {
			snap.Direct = chunk.MVCC
		} else if refCol, ok := findReference(chunk); ok {
			// A reference chunk carries no MVCC of its own; Validate must
			// follow each row's position into the referenced base table
			// (§4.3's reference-indirection requirement).
			snap.RefTable = refCol.Referenced
			snap.Positions = refCol.Positions
		}
		rctx.BindChunk(chunkIdx, chunk.Rows, snap, d.lock.RUnlock)

		for row := 0; row < chunk.Rows; row++ {
			rctx.RowOffset = row
			chain.Consume(rctx)
		}

		if !d.Plan.IsAggregate() {
			rctx.OutChunk.FinalizeChunk()
		}

		rctx.ReleaseChunk()
		if d.Metrics != nil {
			d.Metrics.ChunksRead.Inc()
		}
		chunkSpan.Finish()
	}

	if d.Plan.IsAggregate() {
		return Result{Aggregates: rctx.Hashmap.Finalize()}, nil
	}
	return Result{Chunks: rctx.OutChunk.Chunks()}, nil
}

// findReference returns the first Reference-kind segment in chunk, used
// to resolve MVCC indirection for chunks that carry no MVCC of their own.
func findReference(chunk table.Chunk) (table.Segment, bool) {
	for _, col := range chunk.Columns {
		if col.Kind == table.Reference {
			return col, true
		}
	}
	return table.Segment{}, false
}
