package table

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parquet "github.com/parquet-go/parquet-go"
)

const parquetBatchSize = 1024

// ReadParquet reads a flat Parquet file of the given size into a header row
// followed by one row per record, every value formatted as text. Null values
// become empty cells.
func ReadParquet(r io.ReaderAt, size int64) ([][]string, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening parquet file: %w", err)
	}
	reader := parquet.NewReader(f)
	defer reader.Close()
	columns := reader.Schema().Columns()
	if len(columns) == 0 {
		return nil, errors.New("parquet file has no columns")
	}
	header := make([]string, len(columns))
	for i, path := range columns {
		header[i] = strings.Join(path, ".")
	}
	rows := [][]string{header}
	batch := make([]parquet.Row, parquetBatchSize)
	for {
		n, err := reader.ReadRows(batch)
		for _, row := range batch[:n] {
			cells := make([]string, len(columns))
			for _, v := range row {
				c := v.Column()
				if c < 0 || c >= len(cells) || v.IsNull() {
					continue
				}
				cells[c] = valueString(v)
			}
			rows = append(rows, cells)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return rows, nil
}

// ParquetBytes is ReadParquet for data already in memory.
func ParquetBytes(data []byte) ([][]string, error) {
	return ReadParquet(bytes.NewReader(data), int64(len(data)))
}

func valueString(v parquet.Value) string {
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}
