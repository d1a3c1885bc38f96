// Package plan builds a Plan once per query: the tuple layout, the bound
// column readers/writers, the expression trees with their lazy-load
// annotations resolved, and (for group-by queries) the aggregate spec —
// everything jit/rowexec needs to run the operator chain unchanged across
// every chunk of the query (§3's "built once, read many times" lifecycle).
package plan

import (
	"github.com/mitchellh/hashstructure"

	"github.com/pecbali/hyrise-jit/jit/aggregate"
	"github.com/pecbali/hyrise-jit/jit/config"
	"github.com/pecbali/hyrise-jit/jit/expression"
	"github.com/pecbali/hyrise-jit/jit/jiterrors"
	"github.com/pecbali/hyrise-jit/jit/rowexec"
	"github.com/pecbali/hyrise-jit/jit/types"
	"github.com/pecbali/hyrise-jit/jit/value"
)

// ColumnBinding names one column the plan reads: the tuple slot it's
// loaded into and the index of that column within a chunk's Columns
// slice. Its position in Plan.Columns is also its ReaderIndex — the value
// every Column leaf bound to it carries in Expr.ReaderIndex.
type ColumnBinding struct {
	Handle           value.TupleHandle
	ChunkColumnIndex int
}

// OutputColumn names one column the query writes out.
type OutputColumn struct {
	Handle   value.TupleHandle
	Nullable bool
}

// Plan is built once per query by New and stays immutable for its
// lifetime; only the RuntimeContext's per-chunk fields change between
// chunks (§3).
type Plan struct {
	TupleSize int
	Columns   []ColumnBinding

	Filter   *expression.Expr
	Computed []*expression.Expr

	GroupTupleHandles []value.TupleHandle
	GroupHashHandles  []value.HashmapHandle
	Aggregates        []aggregate.Spec

	Output []OutputColumn

	// LimitRows is nil for queries with no LIMIT clause.
	LimitRows *int
}

// New validates and assembles a Plan from its already-built pieces, then
// runs the §4.3 lazy-load analysis once over Filter and Computed together
// — it must see the whole set of expressions sharing a reader to place
// Load/Store correctly, so it cannot run piecemeal as each tree is built.
// When cfg.EnableLazyLoad is false every Column leaf loads independently
// (no shared slot, no short-circuit-aware skipping) — functionally
// identical, just without the optimization §6 lets operators disable.
func New(cfg config.Config, tupleSize int, columns []ColumnBinding, filter *expression.Expr, computed []*expression.Expr,
	groupTupleHandles []value.TupleHandle, groupHashHandles []value.HashmapHandle, aggregates []aggregate.Spec,
	output []OutputColumn, limitRows *int) (*Plan, error) {
	if len(groupTupleHandles) != len(groupHashHandles) {
		return nil, jiterrors.ErrPlan.New("group-by handle count mismatch: %d tuple handles vs %d hashmap handles",
			len(groupTupleHandles), len(groupHashHandles))
	}
	p := &Plan{
		TupleSize:         tupleSize,
		Columns:           columns,
		Filter:            filter,
		Computed:          computed,
		GroupTupleHandles: groupTupleHandles,
		GroupHashHandles:  groupHashHandles,
		Aggregates:        aggregates,
		Output:            output,
		LimitRows:         limitRows,
	}
	p.AnalyzeLazyLoad(cfg.EnableLazyLoad)
	return p, nil
}

// IsAggregate reports whether this plan ends in a group-by, which changes
// both its operator chain shape (Aggregate instead of Limit/Write in the
// per-row loop) and its end-of-query finalization (Hashmap.Finalize
// instead of draining an OutputAccumulator).
func (p *Plan) IsAggregate() bool { return len(p.Aggregates) > 0 }

// NewHashmap builds a fresh aggregate.Hashmap for this plan, for the
// driver to attach to a RuntimeContext at query start.
func (p *Plan) NewHashmap() *aggregate.Hashmap {
	return aggregate.NewHashmap(p.GroupHashHandles, p.Aggregates)
}

// Build assembles the §4.3 operator chain for this plan: Read, optionally
// Validate (gated by cfg.EnableMVCC), optionally Filter, Compute, and
// finally either Aggregate (group-by queries) or Limit+Write (scan
// queries). The chain is rebuilt per query from the plan's fields but the
// plan itself — and every Expr it holds — is never mutated by Build.
func (p *Plan) Build(cfg config.Config) rowexec.Operator {
	var tail rowexec.Operator
	if p.IsAggregate() {
		tail = &rowexec.Aggregate{GroupHandles: p.GroupTupleHandles, Specs: p.Aggregates}
	} else {
		write := &rowexec.Write{Handles: outputHandles(p.Output)}
		tail = &rowexec.Limit{Next: write}
	}

	if len(p.Computed) > 0 {
		tail = &rowexec.Compute{Exprs: p.Computed, Next: tail}
	}
	if p.Filter != nil {
		tail = &rowexec.Filter{Expr: p.Filter, Next: tail}
	}
	if cfg.EnableMVCC {
		tail = &rowexec.Validate{Next: tail}
	}
	return &rowexec.Read{EagerReaderIndices: p.eagerReaderIndices(), Next: tail}
}

func outputHandles(cols []OutputColumn) []value.TupleHandle {
	handles := make([]value.TupleHandle, len(cols))
	for i, c := range cols {
		handles[i] = c.Handle
	}
	return handles
}

// eagerReaderIndices returns every bound column Read must load
// unconditionally (§4.3): those whose reader index no expression leaf ever
// claimed via Load, and those whose slot Write or Aggregate reads after the
// expressions have run, since a leaf's load may not store or may be pruned.
func (p *Plan) eagerReaderIndices() []int {
	claimed := make([]bool, len(p.Columns))
	mark := func(e *expression.Expr) { markLoaded(e, claimed) }
	mark(p.Filter)
	for _, e := range p.Computed {
		mark(e)
	}
	readAfter := make(map[int]bool)
	for _, c := range p.Output {
		readAfter[c.Handle.TupleIndex] = true
	}
	for _, h := range p.GroupTupleHandles {
		readAfter[h.TupleIndex] = true
	}
	for _, a := range p.Aggregates {
		if a.HasInput {
			readAfter[a.Input.TupleIndex] = true
		}
	}
	var eager []int
	for i, claim := range claimed {
		if !claim || readAfter[p.Columns[i].Handle.TupleIndex] {
			eager = append(eager, i)
		}
	}
	return eager
}

func markLoaded(e *expression.Expr, claimed []bool) {
	if e == nil {
		return
	}
	if e.Kind == expression.Column && e.Load {
		claimed[e.ReaderIndex] = true
	}
	markLoaded(e.Left, claimed)
	markLoaded(e.Right, claimed)
	for _, c := range e.Extra {
		markLoaded(c, claimed)
	}
}

// cacheKeyView mirrors the parts of a Plan stable enough to key a plan
// cache by: column bindings, output shape, and whether it aggregates.
// Expression trees are deliberately excluded — two logically identical
// query texts produce distinct *expression.Expr pointers, and hashing
// those would defeat the cache rather than serve it; callers key on the
// query text/AST upstream of plan build and use CacheKey only to detect
// an accidental structural drift between two Plans meant to be the same.
type cacheKeyView struct {
	TupleSize  int
	Columns    []ColumnBinding
	Output     []OutputColumn
	GroupTypes []types.DataType
	AggKinds   []aggregate.Kind
}

// CacheKey returns a stable hash of this plan's physical shape, via
// mitchellh/hashstructure — the same library the teacher pack's cache
// layers use for invalidation keys.
func (p *Plan) CacheKey() (uint64, error) {
	view := cacheKeyView{
		TupleSize: p.TupleSize,
		Columns:   p.Columns,
		Output:    p.Output,
	}
	for _, h := range p.GroupHashHandles {
		view.GroupTypes = append(view.GroupTypes, h.DataType)
	}
	for _, a := range p.Aggregates {
		view.AggKinds = append(view.AggKinds, a.Kind)
	}
	return hashstructure.Hash(view, nil)
}
