package segment

import (
	"github.com/pecbali/hyrise-jit/jit/table"
	"github.com/pecbali/hyrise-jit/jit/types"
	"github.com/pecbali/hyrise-jit/jit/value"
)

// Writer appends one tuple slot's value to an output chunk's column, via
// append-only dense vectors — scan output is always dense (§6).
type Writer interface {
	Write(tuple *value.VariantVector, handle value.TupleHandle)
	// Segment snapshots the accumulated column as a table.Segment, for
	// handing the finished output chunk to its consumer.
	Segment() table.Segment
}

type denseWriter struct {
	dataType types.DataType
	values   interface{}
	nulls    []bool
	nullable bool
}

func NewWriter(dataType types.DataType, nullable bool) Writer {
	w := &denseWriter{dataType: dataType, nullable: nullable}
	switch dataType {
	case types.Int32:
		w.values = []int32{}
	case types.Int64:
		w.values = []int64{}
	case types.Float32:
		w.values = []float32{}
	case types.Float64:
		w.values = []float64{}
	case types.String:
		w.values = []string{}
	case types.Bool:
		w.values = []bool{}
	}
	if nullable {
		w.nulls = []bool{}
	}
	return w
}

func (w *denseWriter) Write(tuple *value.VariantVector, handle value.TupleHandle) {
	isNull := handle.IsNullable && tuple.IsNull(handle.TupleIndex)
	if w.nullable {
		w.nulls = append(w.nulls, isNull)
	}
	switch v := w.values.(type) {
	case []int32:
		val := int32(0)
		if !isNull {
			val = tuple.GetInt32(handle.TupleIndex)
		}
		w.values = append(v, val)
	case []int64:
		val := int64(0)
		if !isNull {
			val = tuple.GetInt64(handle.TupleIndex)
		}
		w.values = append(v, val)
	case []float32:
		val := float32(0)
		if !isNull {
			val = tuple.GetFloat32(handle.TupleIndex)
		}
		w.values = append(v, val)
	case []float64:
		val := float64(0)
		if !isNull {
			val = tuple.GetFloat64(handle.TupleIndex)
		}
		w.values = append(v, val)
	case []string:
		val := ""
		if !isNull {
			val = tuple.GetString(handle.TupleIndex)
		}
		w.values = append(v, val)
	case []bool:
		val := false
		if !isNull {
			val = tuple.GetBool(handle.TupleIndex)
		}
		w.values = append(v, val)
	}
}

func (w *denseWriter) Segment() table.Segment {
	return table.Segment{
		Kind:        table.Dense,
		DenseValues: w.values,
		DenseNulls:  w.nulls,
	}
}
