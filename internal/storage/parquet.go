package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// marshalTable serializes rows into a single parquet blob. Tables are
// written whole; objects are immutable once published.
func marshalTable[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer

	writer := parquet.NewGenericWriter[T](&buf, parquet.Compression(&parquet.Zstd))
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}

	return buf.Bytes(), nil
}

// unmarshalTable deserializes a parquet blob back into rows of T.
func unmarshalTable[T any](data []byte) ([]T, error) {
	reader := parquet.NewGenericReader[T](bytes.NewReader(data))
	defer reader.Close()

	rows := make([]T, reader.NumRows())
	if len(rows) == 0 {
		return rows, nil
	}

	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}
	return rows[:n], nil
}
