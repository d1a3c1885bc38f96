package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pecbali/hyrise-jit/jit/aggregate"
	"github.com/pecbali/hyrise-jit/jit/config"
	"github.com/pecbali/hyrise-jit/jit/expression"
	"github.com/pecbali/hyrise-jit/jit/plan"
	"github.com/pecbali/hyrise-jit/jit/table"
	"github.com/pecbali/hyrise-jit/jit/types"
	"github.com/pecbali/hyrise-jit/jit/value"
)

func buildScanTable(t *testing.T) *table.Table {
	t.Helper()
	colA := []int32{5, 12, 20, 8, 15}
	chunk := table.Chunk{
		Rows:    len(colA),
		Columns: []table.Segment{{Kind: table.Dense, DenseValues: colA}},
		MVCC:    table.NewScanMVCC(len(colA)),
	}
	return &table.Table{Chunks: []table.Chunk{chunk}}
}

func TestDriverFilterAndProject(t *testing.T) {
	input := buildScanTable(t)
	colA := value.TupleHandle{DataType: types.Int32, IsNullable: false, TupleIndex: 0}
	doubled := value.TupleHandle{DataType: types.Int32, IsNullable: false, TupleIndex: 1}

	ten, err := plan.NewLiteral(int64(10), types.Int32, false, 2)
	require.NoError(t, err)
	filter := expression.NewBinary(expression.Gt, expression.NewColumn(colA), ten,
		value.TupleHandle{DataType: types.Bool, TupleIndex: 3})
	double := expression.NewBinary(expression.Add, expression.NewColumn(colA), expression.NewColumn(colA), doubled)

	p, err := plan.New(config.Default(), 4,
		[]plan.ColumnBinding{{Handle: colA, ChunkColumnIndex: 0}},
		filter, []*expression.Expr{double}, nil, nil, nil,
		[]plan.OutputColumn{{Handle: doubled}}, nil)
	require.NoError(t, err)

	d := New(p, config.Default(), nil, nil, nil)
	result, err := d.Run(context.Background(), input, 1, 100)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	require.Equal(t, 3, result.Chunks[0].Rows) // 12, 20, 15 pass col_a > 10
	require.Equal(t, []int32{24, 40, 30}, result.Chunks[0].Columns[0].DenseValues.([]int32))
}

func TestDriverRespectsMVCCInvisibility(t *testing.T) {
	input := buildScanTable(t)
	// Row 0 is invisible: begin_cid after the snapshot.
	input.Chunks[0].MVCC.BeginCIDs[0] = 999

	colA := value.TupleHandle{DataType: types.Int32, IsNullable: false, TupleIndex: 0}
	p, err := plan.New(config.Default(), 1,
		[]plan.ColumnBinding{{Handle: colA, ChunkColumnIndex: 0}},
		nil, nil, nil, nil, nil,
		[]plan.OutputColumn{{Handle: colA}}, nil)
	require.NoError(t, err)

	d := New(p, config.Default(), nil, nil, nil)
	result, err := d.Run(context.Background(), input, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 4, result.Chunks[0].Rows) // 5 rows minus the one invisible row
}

func TestDriverLimit(t *testing.T) {
	input := buildScanTable(t)
	colA := value.TupleHandle{DataType: types.Int32, IsNullable: false, TupleIndex: 0}
	limit := 2
	p, err := plan.New(config.Default(), 1,
		[]plan.ColumnBinding{{Handle: colA, ChunkColumnIndex: 0}},
		nil, nil, nil, nil, nil,
		[]plan.OutputColumn{{Handle: colA}}, &limit)
	require.NoError(t, err)

	d := New(p, config.Default(), nil, nil, nil)
	result, err := d.Run(context.Background(), input, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 2, result.Chunks[0].Rows)
}

func TestDriverGroupBy(t *testing.T) {
	colA := []int32{1, 2, 3, 4}
	colB := []int32{0, 0, 1, 1}
	chunk := table.Chunk{
		Rows:    4,
		Columns: []table.Segment{{Kind: table.Dense, DenseValues: colA}, {Kind: table.Dense, DenseValues: colB}},
		MVCC:    table.NewScanMVCC(4),
	}
	input := &table.Table{Chunks: []table.Chunk{chunk}}

	aH := value.TupleHandle{DataType: types.Int32, IsNullable: false, TupleIndex: 0}
	bH := value.TupleHandle{DataType: types.Int32, IsNullable: false, TupleIndex: 1}
	groupHandle := value.HashmapHandle{DataType: types.Int32, IsNullable: false, ColumnIndex: 0}
	sumOut := value.HashmapHandle{DataType: types.Float64, IsNullable: false, ColumnIndex: 0}

	p, err := plan.New(config.Default(), 2,
		[]plan.ColumnBinding{{Handle: aH, ChunkColumnIndex: 0}, {Handle: bH, ChunkColumnIndex: 1}},
		nil, nil,
		[]value.TupleHandle{bH}, []value.HashmapHandle{groupHandle},
		[]aggregate.Spec{{Kind: aggregate.Sum, Input: aH, Output: sumOut, HasInput: true}},
		nil, nil)
	require.NoError(t, err)

	d := New(p, config.Default(), nil, nil, nil)
	result, err := d.Run(context.Background(), input, 1, 100)
	require.NoError(t, err)
	require.Len(t, result.Aggregates, 2)

	sums := map[int32]float64{}
	for _, g := range result.Aggregates {
		sums[g.Keys[0].(int32)] = g.Aggs[0].(float64)
	}
	require.Equal(t, float64(3), sums[0])  // 1 + 2
	require.Equal(t, float64(7), sums[1]) // 3 + 4
}
