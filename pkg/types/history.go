// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionStatus is the outcome of one recorded convert run.
type ConversionStatus string

const (
	ConversionDone   ConversionStatus = "converted"
	ConversionFailed ConversionStatus = "failed"
)

// ConversionRecord is one row of the conversion history.
type ConversionRecord struct {
	ID         int64            `json:"id" yaml:"id"`
	InputPath  string           `json:"input_path" yaml:"input_path"`
	OutputPath string           `json:"output_path" yaml:"output_path"`
	Status     ConversionStatus `json:"status" yaml:"status"`

	// ErrorKind is "file_access", "parse", "cancelled", "config", or "other"
	// for failed runs. A converted run whose parquet sidecar could not be
	// written carries "sidecar". It is empty otherwise.
	ErrorKind    string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	Lines      int           `json:"lines" yaml:"lines"`
	Records    int           `json:"records" yaml:"records"`
	Blank      int           `json:"blank" yaml:"blank"`
	HeaderKept bool          `json:"header_kept" yaml:"header_kept"`
	Offset     time.Duration `json:"offset" yaml:"offset"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}
