// Package ingesttest builds in-memory parquet datasets for tests.
package ingesttest

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"
)

// Column is one column of a test dataset. Values must be []int64,
// []int32, []float64 or []string; Valid marks nulls when non-nil.
type Column struct {
	Name   string
	Values interface{}
	Valid  []bool
}

// Int64 is shorthand for a non-null int64 column.
func Int64(name string, values ...int64) Column {
	return Column{Name: name, Values: values}
}

// Trips builds the PULocationID/DOLocationID columns from pairs.
func Trips(pairs ...[2]int64) []Column {
	pu := make([]int64, len(pairs))
	do := make([]int64, len(pairs))
	for i, p := range pairs {
		pu[i], do[i] = p[0], p[1]
	}
	return []Column{Int64("PULocationID", pu...), Int64("DOLocationID", do...)}
}

// Parquet encodes the columns as a parquet file.
func Parquet(t testing.TB, cols ...Column) []byte {
	t.Helper()
	mem := memory.NewGoAllocator()
	fields := make([]arrow.Field, len(cols))
	chunks := make([]arrow.Array, len(cols))
	var numRows int64
	for i, c := range cols {
		switch v := c.Values.(type) {
		case []int64:
			b := array.NewInt64Builder(mem)
			b.AppendValues(v, c.Valid)
			chunks[i] = b.NewArray()
			fields[i] = arrow.Field{Name: c.Name, Type: arrow.PrimitiveTypes.Int64, Nullable: true}
			numRows = int64(len(v))
		case []int32:
			b := array.NewInt32Builder(mem)
			b.AppendValues(v, c.Valid)
			chunks[i] = b.NewArray()
			fields[i] = arrow.Field{Name: c.Name, Type: arrow.PrimitiveTypes.Int32, Nullable: true}
			numRows = int64(len(v))
		case []float64:
			b := array.NewFloat64Builder(mem)
			b.AppendValues(v, c.Valid)
			chunks[i] = b.NewArray()
			fields[i] = arrow.Field{Name: c.Name, Type: arrow.PrimitiveTypes.Float64, Nullable: true}
			numRows = int64(len(v))
		case []string:
			b := array.NewStringBuilder(mem)
			b.AppendValues(v, c.Valid)
			chunks[i] = b.NewArray()
			fields[i] = arrow.Field{Name: c.Name, Type: arrow.BinaryTypes.String, Nullable: true}
			numRows = int64(len(v))
		default:
			t.Fatalf("unsupported column type %T", c.Values)
		}
	}

	schema := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(schema, chunks, numRows)
	defer rec.Release()
	table := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer table.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithDictionaryDefault(false))
	if err := pqarrow.WriteTable(table, &buf, 4096, props, pqarrow.DefaultWriterProps()); err != nil {
		t.Fatalf("writing parquet: %v", err)
	}
	return buf.Bytes()
}
