// Command jitdemo exercises the jit execution core end to end against an
// in-memory table built directly in Go — standing in for the external
// query planner and storage engine this module deliberately does not
// implement (see SPEC_FULL.md's Non-goals). It runs one filter+project
// query and one group-by query over the same table.
package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pecbali/hyrise-jit/driver"
	"github.com/pecbali/hyrise-jit/jit/aggregate"
	"github.com/pecbali/hyrise-jit/jit/config"
	"github.com/pecbali/hyrise-jit/jit/expression"
	"github.com/pecbali/hyrise-jit/jit/metrics"
	"github.com/pecbali/hyrise-jit/jit/plan"
	"github.com/pecbali/hyrise-jit/jit/table"
	"github.com/pecbali/hyrise-jit/jit/types"
	"github.com/pecbali/hyrise-jit/jit/value"
)

func main() {
	log := logrus.NewEntry(logrus.New())
	cfg := config.Default()
	mcol := metrics.NewCollector()

	input := buildTable()

	runFilterProject(log, cfg, mcol, input)
	runGroupBy(log, cfg, mcol, input)
}

// buildTable makes one chunk of five rows: col_a (Int32, not null) and
// col_b (Int32, nullable), all visible from commit 0 onward.
func buildTable() *table.Table {
	colA := []int32{5, 12, 20, 8, 15}
	colB := []int32{1, 2, 0, 4, 5}
	nullsB := []bool{false, false, true, false, false}

	chunk := table.Chunk{
		Rows: len(colA),
		Columns: []table.Segment{
			{Kind: table.Dense, DenseValues: colA},
			{Kind: table.Dense, DenseValues: colB, DenseNulls: nullsB},
		},
		MVCC: table.NewScanMVCC(len(colA)),
	}
	return &table.Table{Chunks: []table.Chunk{chunk}}
}

// runFilterProject runs SELECT col_a, col_b, col_a + col_b WHERE col_a > 10.
func runFilterProject(log *logrus.Entry, cfg config.Config, mcol *metrics.Collector, input *table.Table) {
	colA := value.TupleHandle{DataType: types.Int32, IsNullable: false, TupleIndex: 0}
	colB := value.TupleHandle{DataType: types.Int32, IsNullable: true, TupleIndex: 1}
	sum := value.TupleHandle{DataType: types.Int32, IsNullable: true, TupleIndex: 4}
	gtResult := value.TupleHandle{DataType: types.Bool, IsNullable: false, TupleIndex: 3}

	literalTen, err := plan.NewLiteral(int64(10), types.Int32, false, 2)
	if err != nil {
		log.WithError(err).Fatal("jitdemo: building literal")
	}
	filter := expression.NewBinary(expression.Gt, expression.NewColumn(colA), literalTen, gtResult)
	sumExpr := expression.NewBinary(expression.Add, expression.NewColumn(colA), expression.NewColumn(colB), sum)

	p, err := plan.New(cfg, 5,
		[]plan.ColumnBinding{{Handle: colA, ChunkColumnIndex: 0}, {Handle: colB, ChunkColumnIndex: 1}},
		filter,
		[]*expression.Expr{sumExpr},
		nil, nil, nil,
		[]plan.OutputColumn{{Handle: colA}, {Handle: colB, Nullable: true}, {Handle: sum, Nullable: true}},
		nil,
	)
	if err != nil {
		log.WithError(err).Fatal("jitdemo: building plan")
	}

	d := driver.New(p, cfg, mcol, log, nil)
	result, err := d.Run(context.Background(), input, 1, 100)
	if err != nil {
		log.WithError(err).Fatal("jitdemo: running query")
	}

	fmt.Println("col_a, col_b, col_a+col_b")
	for _, chunk := range result.Chunks {
		printChunk(chunk)
	}
}

// runGroupBy runs SELECT col_b, COUNT(*), SUM(col_a) GROUP BY col_b. Both
// group key and aggregate input ride in on Read's eager load: nothing in
// this plan's Filter or Computed claims either column, so Plan.Build
// loads them unconditionally every row (§4.3).
func runGroupBy(log *logrus.Entry, cfg config.Config, mcol *metrics.Collector, input *table.Table) {
	colA := value.TupleHandle{DataType: types.Int32, IsNullable: false, TupleIndex: 0}
	colB := value.TupleHandle{DataType: types.Int32, IsNullable: true, TupleIndex: 1}

	groupHandle := value.HashmapHandle{DataType: types.Int32, IsNullable: true, ColumnIndex: 0}
	sumOutput := value.HashmapHandle{DataType: types.Float64, IsNullable: false, ColumnIndex: 0}
	countOutput := value.HashmapHandle{DataType: types.Int64, IsNullable: false, ColumnIndex: 1}

	specs := []aggregate.Spec{
		{Kind: aggregate.Sum, Input: colA, Output: sumOutput, HasInput: true},
		{Kind: aggregate.Count, Output: countOutput, HasInput: false},
	}

	p, err := plan.New(cfg, 2,
		[]plan.ColumnBinding{{Handle: colA, ChunkColumnIndex: 0}, {Handle: colB, ChunkColumnIndex: 1}},
		nil, nil,
		[]value.TupleHandle{colB}, []value.HashmapHandle{groupHandle}, specs,
		nil, nil,
	)
	if err != nil {
		log.WithError(err).Fatal("jitdemo: building group-by plan")
	}

	d := driver.New(p, cfg, mcol, log, nil)
	result, err := d.Run(context.Background(), input, 1, 100)
	if err != nil {
		log.WithError(err).Fatal("jitdemo: running group-by query")
	}

	fmt.Println("\ncol_b, count(*), sum(col_a)")
	for _, group := range result.Aggregates {
		fmt.Println(group.Keys[0], group.Aggs[1], group.Aggs[0])
	}
}

func printChunk(chunk table.Chunk) {
	for row := 0; row < chunk.Rows; row++ {
		a := chunk.Columns[0].DenseValues.([]int32)[row]
		b := formatNullable(chunk.Columns[1], row)
		s := formatNullable(chunk.Columns[2], row)
		fmt.Println(a, b, s)
	}
}

func formatNullable(col table.Segment, row int) string {
	if col.DenseNulls != nil && col.DenseNulls[row] {
		return "NULL"
	}
	return fmt.Sprint(col.DenseValues.([]int32)[row])
}
