package plan

import "github.com/pecbali/hyrise-jit/jit/expression"

// readerIndexOf maps a bound column's tuple slot to its reader index
// (its position in Plan.Columns), so AnalyzeLazyLoad can recognize which
// Column leaves name an actual input column rather than a derived
// Compute slot.
type readerIndexOf map[int]int // TupleIndex -> ReaderIndex

func newReaderIndexOf(columns []ColumnBinding) readerIndexOf {
	m := make(readerIndexOf, len(columns))
	for i, c := range columns {
		m[c.Handle.TupleIndex] = i
	}
	return m
}

type occurrence struct {
	leaf         *expression.Expr
	shortCircuit bool
}

// AnalyzeLazyLoad walks every expression tree that shares this plan's
// column set — the filter first, then each computed projection, in
// evaluation order — and assigns every Column leaf's Load/Store/
// ReaderIndex fields per §4.3's lazy-load discipline.
//
// A short-circuitable occurrence (the right child of an And/Or, since the
// left child always evaluates) cannot be trusted as a load-and-store site
// for a later, unconditionally-evaluated occurrence of the same column:
// on any row where the left side already decides the result, the
// short-circuitable occurrence's eval never runs, and the slot it would
// have filled keeps whatever a previous row left there. So for each
// column, the load-and-store site is the first occurrence (in evaluation
// order) that is NOT short-circuitable, not simply the first occurrence
// in pre-order. Occurrences before that site independently load (they
// cannot rely on a store that hasn't happened yet); occurrences after it
// read from the slot it fills. If every occurrence of a column is
// short-circuitable, none can be trusted to run before another, so each
// loads independently and none stores.
//
// Column leaves not bound to any of Plan.Columns (there are none in a
// well-formed plan; every Column leaf names a bound input) are left
// alone. When enableLazyLoad is false, every occurrence loads
// independently: no slot is shared and no short-circuit-aware skipping
// happens, trading the optimization away for simplicity, never for
// correctness.
func (p *Plan) AnalyzeLazyLoad(enableLazyLoad bool) {
	byTupleIndex := newReaderIndexOf(p.Columns)

	var occurrences []occurrence
	var walk func(e *expression.Expr, sc bool)
	walk = func(e *expression.Expr, sc bool) {
		if e == nil {
			return
		}
		switch e.Kind {
		case expression.Column:
			if _, ok := byTupleIndex[e.Result.TupleIndex]; ok {
				occurrences = append(occurrences, occurrence{leaf: e, shortCircuit: sc})
			}
		case expression.And, expression.Or:
			walk(e.Left, sc)
			walk(e.Right, true)
		default:
			walk(e.Left, sc)
			walk(e.Right, sc)
			for _, c := range e.Extra {
				walk(c, sc)
			}
		}
	}

	if p.Filter != nil {
		walk(p.Filter, false)
	}
	for _, e := range p.Computed {
		walk(e, false)
	}

	if !enableLazyLoad {
		for _, occ := range occurrences {
			occ.leaf.Load = true
			occ.leaf.ReaderIndex = byTupleIndex[occ.leaf.Result.TupleIndex]
			occ.leaf.Store = true
		}
		return
	}

	byColumn := make(map[int][]occurrence, len(occurrences))
	var columnsInOrder []int
	for _, occ := range occurrences {
		tupleIdx := occ.leaf.Result.TupleIndex
		if _, seen := byColumn[tupleIdx]; !seen {
			columnsInOrder = append(columnsInOrder, tupleIdx)
		}
		byColumn[tupleIdx] = append(byColumn[tupleIdx], occ)
	}

	for _, tupleIdx := range columnsInOrder {
		occs := byColumn[tupleIdx]
		readerIdx := byTupleIndex[tupleIdx]

		canonical := -1
		for i, occ := range occs {
			if !occ.shortCircuit {
				canonical = i
				break
			}
		}

		if canonical == -1 {
			for _, occ := range occs {
				occ.leaf.Load = true
				occ.leaf.ReaderIndex = readerIdx
				occ.leaf.Store = false
			}
			continue
		}

		for i, occ := range occs {
			switch {
			case i < canonical:
				// Runs before the canonical site could possibly have
				// stored anything for this row; load independently.
				occ.leaf.Load = true
				occ.leaf.ReaderIndex = readerIdx
				occ.leaf.Store = false
			case i == canonical:
				occ.leaf.Load = true
				occ.leaf.ReaderIndex = readerIdx
				occ.leaf.Store = len(occs) > 1
			default:
				occ.leaf.Load = false
			}
		}
	}
}
