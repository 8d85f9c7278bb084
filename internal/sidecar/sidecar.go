// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sidecar writes the shifted bars of a conversion to a Parquet file
// next to the MetaTrader output, for loading into columnar tools.
package sidecar

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/pdiddy/ts2mt/internal/convert"
	"github.com/pdiddy/ts2mt/pkg/types"
)

// Row is the Parquet schema of one bar. Date and Time use the MetaTrader
// text layout; Unix is the same wall clock as seconds since the epoch.
type Row struct {
	Date   string   `parquet:"date"`
	Time   string   `parquet:"time"`
	Unix   int64    `parquet:"unix"`
	Fields []string `parquet:"fields,list"`
}

// ErrSidecar matches every error returned by Writer.Flush.
var ErrSidecar = errors.New("parquet sidecar")

// Path returns the sidecar location for a conversion output: the full output
// name followed by .parquet. It never equals outputPath.
func Path(outputPath string) string {
	return outputPath + ".parquet"
}

// Writer buffers bars and writes them on Flush. It implements convert.BarSink.
type Writer struct {
	rows []Row
}

var _ convert.BarSink = (*Writer)(nil)

// WriteBar appends b to the buffer.
func (w *Writer) WriteBar(b types.Bar) error {
	fields := make([]string, len(b.Fields))
	copy(fields, b.Fields)
	w.rows = append(w.rows, Row{
		Date:   b.Timestamp.Format(convert.DateLayout),
		Time:   b.Timestamp.Format(convert.TimeLayout),
		Unix:   b.Timestamp.Unix(),
		Fields: fields,
	})
	return nil
}

// Len returns the number of buffered bars.
func (w *Writer) Len() int {
	return len(w.rows)
}

// Flush writes the buffered bars to path and clears the buffer. The file is
// written under a temporary name in the same directory and renamed onto path,
// so a failed flush leaves any existing file at path as it was.
func (w *Writer) Flush(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrSidecar, path, err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := parquet.Write(tmp, w.rows); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrSidecar, path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrSidecar, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrSidecar, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrSidecar, path, err)
	}
	committed = true
	w.rows = nil
	return nil
}

// Reset drops the buffered bars without writing them.
func (w *Writer) Reset() {
	w.rows = nil
}

// ReadRows reads a sidecar file back.
func ReadRows(path string) ([]Row, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, fmt.Errorf("reading parquet sidecar %s: %w", path, err)
	}
	return rows, nil
}
