package ingest

import (
	"bytes"
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet/file"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"
	"github.com/pkg/errors"
)

// TLC trip record columns holding the pickup and dropoff zone ids.
const (
	ColumnPickup  = "PULocationID"
	ColumnDropoff = "DOLocationID"
)

var requiredColumns = []string{ColumnPickup, ColumnDropoff}

// trips holds the zone id columns of a dataset, coerced to ints.
// Values that could not be coerced are 0.
type trips struct {
	rowsRead int
	pickup   []int
	dropoff  []int
}

// readTrips decodes a parquet file and returns at most rowLimit rows of the
// pickup and dropoff columns. A rowLimit of 0 reads every row.
func readTrips(ctx context.Context, data []byte, rowLimit int) (*trips, error) {
	table, err := readTable(ctx, data)
	if err != nil {
		return nil, &Error{
			Category: CategoryMalformedFile,
			Message:  "Invalid parquet file format: " + errors.Cause(err).Error(),
			Err:      err,
		}
	}
	defer table.Release()

	rows := int(table.NumRows())
	if rowLimit > 0 && rows > rowLimit {
		rows = rowLimit
	}

	schema := table.Schema()
	var missing []string
	cols := make([]int, len(requiredColumns))
	for i, name := range requiredColumns {
		idx := schema.FieldIndices(name)
		if len(idx) == 0 {
			missing = append(missing, name)
			continue
		}
		cols[i] = idx[0]
	}
	if len(missing) > 0 {
		return nil, newError(CategoryMissingColumns, "Missing required columns: %s", strings.Join(missing, ", "))
	}

	return &trips{
		rowsRead: rows,
		pickup:   intColumn(table.Column(cols[0]), rows),
		dropoff:  intColumn(table.Column(cols[1]), rows),
	}, nil
}

func readTable(ctx context.Context, data []byte) (table arrow.Table, err error) {
	// The parquet decoder panics on some corrupt pages.
	defer func() {
		if r := recover(); r != nil {
			table, err = nil, errors.Errorf("decoding parquet: %v", r)
		}
	}()

	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "opening parquet reader")
	}
	defer pf.Close()

	mem := memory.NewGoAllocator()
	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, errors.Wrap(err, "creating arrow reader")
	}
	table, err = reader.ReadTable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading table")
	}
	return table, nil
}

// intColumn flattens the first n values of a column into ints.
func intColumn(col *arrow.Column, n int) []int {
	out := make([]int, 0, n)
	for _, chunk := range col.Data().Chunks() {
		for i := 0; i < chunk.Len() && len(out) < n; i++ {
			out = append(out, intValue(chunk, i))
		}
		if len(out) == n {
			break
		}
	}
	return out
}

// intValue coerces one cell to an int. Floats are truncated and numeric
// strings are parsed; nulls and anything else become 0.
func intValue(arr arrow.Array, i int) int {
	if arr.IsNull(i) {
		return 0
	}
	switch a := arr.(type) {
	case *array.Int8:
		return int(a.Value(i))
	case *array.Int16:
		return int(a.Value(i))
	case *array.Int32:
		return int(a.Value(i))
	case *array.Int64:
		return int(a.Value(i))
	case *array.Uint8:
		return int(a.Value(i))
	case *array.Uint16:
		return int(a.Value(i))
	case *array.Uint32:
		return int(a.Value(i))
	case *array.Uint64:
		if a.Value(i) > math.MaxInt64 {
			return 0
		}
		return int(a.Value(i))
	case *array.Float32:
		return floatToInt(float64(a.Value(i)))
	case *array.Float64:
		return floatToInt(a.Value(i))
	case *array.String:
		return stringToInt(a.Value(i))
	case *array.LargeString:
		return stringToInt(a.Value(i))
	case *array.Dictionary:
		return intValue(a.Dictionary(), a.GetValueIndex(i))
	}
	return 0
}

func floatToInt(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0
	}
	return int(f)
}

func stringToInt(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return floatToInt(f)
}
