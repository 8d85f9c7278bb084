// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Bar is one OHLC(V) row of a TradeStation export. Timestamp carries the date
// and wall-clock minute of the bar; Fields holds every column after the time,
// kept as opaque text so the row can be written back byte for byte.
type Bar struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Fields    []string  `json:"fields" yaml:"fields"`
}

// ConversionResult summarizes a finished conversion.
type ConversionResult struct {
	// InputPath is the file that was read.
	InputPath string `json:"input_path" yaml:"input_path"`

	// OutputPath is the file that was written (input stem + suffix + extension).
	OutputPath string `json:"output_path" yaml:"output_path"`

	// Lines is the number of lines written, equal to the number read.
	Lines int `json:"lines" yaml:"lines"`

	// Records is the number of bars whose timestamp was shifted.
	Records int `json:"records" yaml:"records"`

	// Blank is the number of empty lines passed through.
	Blank int `json:"blank" yaml:"blank"`

	// HeaderKept reports whether the first line was copied verbatim.
	HeaderKept bool `json:"header_kept" yaml:"header_kept"`

	// Duration is the wall time of the conversion.
	Duration time.Duration `json:"duration" yaml:"duration"`
}
