// Package rowexec implements the single-tuple operator chain of §4.3:
// Read, Validate, Filter, Compute, Aggregate, Limit, Write. Operators are
// chained by a single "emit" hand-off — each Consume does its work and,
// if the tuple should continue, calls the next operator's Consume. There
// is no queue and no batching; stack depth equals chain length (§5: no
// suspension points inside the core).
package rowexec

import (
	"github.com/pecbali/hyrise-jit/jit/aggregate"
	"github.com/pecbali/hyrise-jit/jit/expression"
	"github.com/pecbali/hyrise-jit/jit/runtime"
	"github.com/pecbali/hyrise-jit/jit/value"
)

// Operator is one link of the chain.
type Operator interface {
	Consume(ctx *runtime.Context)
}

// Read is the driving operator: for the row at ctx.RowOffset it triggers
// every eager (non-lazy) reader and emits. The per-chunk, per-row loop
// itself is the Driver's responsibility (§4.5); Read is invoked once per
// row, not looping internally.
type Read struct {
	// EagerReaderIndices are columns Read loads unconditionally, per §4.3:
	// those no expression leaf ever loads lazily, and those whose slot
	// Write or Aggregate reads.
	EagerReaderIndices []int
	Next               Operator
}

func (r *Read) Consume(ctx *runtime.Context) {
	for _, idx := range r.EagerReaderIndices {
		ctx.Readers[idx].ReadValue(ctx.Tuple, ctx.RowOffset)
	}
	if ctx.Metrics != nil {
		ctx.Metrics.RowsRead.Inc()
	}
	if r.Next != nil {
		r.Next.Consume(ctx)
	}
}

// Validate accepts the row iff it is visible under the snapshot (§4.3):
// begin_cid <= snapshot_commit_id AND (end_cid > snapshot_commit_id OR the
// row is owned by the current transaction). Reference inputs follow the
// position list to the base table's MVCC arrays.
type Validate struct {
	Next Operator
}

func (v *Validate) Consume(ctx *runtime.Context) {
	begin, end, tid, ok := visibility(ctx)
	if !ok {
		return
	}
	snap := ctx.Snapshot
	visible := begin <= snap.SnapshotCommitID && (end > snap.SnapshotCommitID || tid == snap.TransactionID)
	if !visible {
		if ctx.Metrics != nil {
			ctx.Metrics.RowsFiltered.Inc()
		}
		return
	}
	v.Next.Consume(ctx)
}

func visibility(ctx *runtime.Context) (begin, end, tid uint64, ok bool) {
	row := ctx.RowOffset
	if ctx.Snapshot.Direct != nil {
		m := ctx.Snapshot.Direct
		return m.BeginCIDs[row], m.EndCIDs[row], m.RowTIDs[row], true
	}
	if ctx.Snapshot.RefTable != nil {
		pos := ctx.Snapshot.Positions[row]
		chunkIdx, rowIdx := ctx.Snapshot.RefTable.Locate(pos)
		m := ctx.Snapshot.RefTable.Chunks[chunkIdx].MVCC
		return m.BeginCIDs[rowIdx], m.EndCIDs[rowIdx], m.RowTIDs[rowIdx], true
	}
	return 0, 0, 0, false
}

// Filter evaluates a boolean expression and emits iff non-null and true.
type Filter struct {
	Expr *expression.Expr
	Next Operator
}

func (f *Filter) Consume(ctx *runtime.Context) {
	val, isNull := f.Expr.ComputeAndGet(ctx)
	if !isNull && val.(bool) {
		f.Next.Consume(ctx)
		return
	}
	if ctx.Metrics != nil {
		ctx.Metrics.RowsFiltered.Inc()
	}
}

// Compute evaluates each expression and stores its result into its slot,
// then emits.
type Compute struct {
	Exprs []*expression.Expr
	Next  Operator
}

func (c *Compute) Consume(ctx *runtime.Context) {
	for _, e := range c.Exprs {
		e.Compute(ctx)
	}
	c.Next.Consume(ctx)
}

// Aggregate is terminal within the per-row loop (§4.4): it looks up or
// creates the current row's group and applies every aggregate's update
// rule. GroupHandles name the already-Computed tuple slots holding this
// row's group-by key values.
type Aggregate struct {
	GroupHandles []value.TupleHandle
	Specs        []aggregate.Spec
}

func (a *Aggregate) Consume(ctx *runtime.Context) {
	groupIdx := ctx.Hashmap.Lookup(ctx.Tuple, a.GroupHandles)
	ctx.Hashmap.Update(ctx.Tuple, groupIdx)
	if ctx.Metrics != nil {
		ctx.Metrics.Groups.Set(float64(ctx.Hashmap.Groups()))
	}
}

// Limit emits until LimitRows rows have passed, after which it becomes a
// no-op for the remainder of the query.
type Limit struct {
	Next Operator
}

func (l *Limit) Consume(ctx *runtime.Context) {
	if ctx.LimitRows != nil {
		if *ctx.LimitRows <= 0 {
			return
		}
		*ctx.LimitRows--
	}
	l.Next.Consume(ctx)
}

// Write appends the surviving tuple's output columns to the context's
// output accumulator via the bound writers.
type Write struct {
	Handles []value.TupleHandle
}

func (w *Write) Consume(ctx *runtime.Context) {
	ctx.OutChunk.Append(ctx.Tuple, w.Handles)
	if ctx.Metrics != nil {
		ctx.Metrics.RowsEmitted.Inc()
	}
}
