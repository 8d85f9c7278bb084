// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultSuffix is inserted before the input extension to name the output file.
	DefaultSuffix = "_MT"

	// DefaultOffset is subtracted from every bar timestamp.
	DefaultOffset = time.Minute

	// DefaultProgressEvery is the number of lines between progress reports.
	DefaultProgressEvery = 10000
)

// HeaderMode controls how the first line of the input is treated.
type HeaderMode string

const (
	// HeaderNone treats every line as data.
	HeaderNone HeaderMode = "none"
	// HeaderKeep copies the first line to the output verbatim.
	HeaderKeep HeaderMode = "keep"
	// HeaderAuto copies the first line verbatim only when it does not parse as a bar.
	HeaderAuto HeaderMode = "auto"
)

// ParseHeaderMode converts a flag or config value to a HeaderMode.
// An empty string selects HeaderNone.
func ParseHeaderMode(s string) (HeaderMode, error) {
	switch m := HeaderMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return HeaderNone, nil
	case HeaderNone, HeaderKeep, HeaderAuto:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported header mode %q: use none, keep, or auto", s)
	}
}

// ConversionConfig holds settings for converting one TradeStation export.
type ConversionConfig struct {
	// Suffix is inserted before the extension of the output file (default "_MT").
	Suffix string `json:"suffix" yaml:"suffix"`

	// Offset is subtracted from each bar timestamp (default 1m).
	Offset time.Duration `json:"offset" yaml:"offset"`

	// Header selects how the first line is handled: none, keep, or auto.
	Header HeaderMode `json:"header" yaml:"header"`

	// ProgressEvery is the number of lines between progress callbacks.
	ProgressEvery int `json:"progress_every" yaml:"progress_every"`

	// Parquet enables the columnar sidecar next to the output file.
	Parquet bool `json:"parquet" yaml:"parquet"`
}

// DefaultConversionConfig returns the settings used when nothing is configured.
func DefaultConversionConfig() ConversionConfig {
	return ConversionConfig{
		Suffix:        DefaultSuffix,
		Offset:        DefaultOffset,
		Header:        HeaderNone,
		ProgressEvery: DefaultProgressEvery,
	}
}

// Validate reports the first setting that cannot drive a conversion.
func (c ConversionConfig) Validate() error {
	if c.Suffix == "" {
		return fmt.Errorf("output suffix must not be empty")
	}
	if strings.ContainsAny(c.Suffix, `/\`) {
		return fmt.Errorf("output suffix %q must not contain path separators", c.Suffix)
	}
	if c.Offset == 0 {
		return fmt.Errorf("offset must not be zero")
	}
	if c.Offset%time.Minute != 0 {
		return fmt.Errorf("offset %v is not a whole number of minutes", c.Offset)
	}
	if _, err := ParseHeaderMode(string(c.Header)); err != nil {
		return err
	}
	if c.ProgressEvery < 0 {
		return fmt.Errorf("progress interval must not be negative")
	}
	return nil
}

// HistoryConfig holds settings for the conversion history store.
type HistoryConfig struct {
	// Dir is the directory holding history.db and its exports.
	Dir string `json:"dir" yaml:"dir"`

	// Enabled controls whether convert runs are recorded.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level"`
}

// Config groups every setting the CLI reads from flags, environment, and ts2mt.yaml.
type Config struct {
	Convert ConversionConfig `json:"convert" yaml:"convert"`
	History HistoryConfig    `json:"history" yaml:"history"`
	Log     LogConfig        `json:"log" yaml:"log"`
}
