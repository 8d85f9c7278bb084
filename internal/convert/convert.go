// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert rewrites a TradeStation bar export as a MetaTrader import
// file. Every bar timestamp is moved back by a fixed offset (one minute by
// default) and the row is written in the same column layout to a sibling
// file named with the _MT suffix.
package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/ts2mt/internal/logging"
	"github.com/pdiddy/ts2mt/pkg/types"
)

// ErrInvalidConfig matches configuration errors returned by NewConverter.
var ErrInvalidConfig = errors.New("invalid conversion config")

const utf8BOM = "\uFEFF"

// BarSink receives every shifted bar of a conversion in input order.
// The parquet sidecar is the production implementation.
type BarSink interface {
	WriteBar(b types.Bar) error
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the diagnostic logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(c *Converter) { c.log = l }
}

// WithProgress registers fn to receive the percentage of input bytes
// consumed. It is called every ProgressEvery lines and once with 100 when the
// conversion succeeds.
func WithProgress(fn func(percent float64)) Option {
	return func(c *Converter) { c.progress = fn }
}

// WithSink forwards each shifted bar to s.
func WithSink(s BarSink) Option {
	return func(c *Converter) { c.sink = s }
}

// Converter transforms one input file per Convert call. It holds no state
// between calls.
type Converter struct {
	cfg      types.ConversionConfig
	log      *logging.Logger
	progress func(percent float64)
	sink     BarSink
}

// NewConverter validates cfg and returns a Converter. Zero-valued Suffix,
// Offset, Header, and ProgressEvery take their defaults.
func NewConverter(cfg types.ConversionConfig, opts ...Option) (*Converter, error) {
	def := types.DefaultConversionConfig()
	if cfg.Suffix == "" {
		cfg.Suffix = def.Suffix
	}
	if cfg.Offset == 0 {
		cfg.Offset = def.Offset
	}
	if cfg.Header == "" {
		cfg.Header = def.Header
	}
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = def.ProgressEvery
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	header, _ := types.ParseHeaderMode(string(cfg.Header))
	cfg.Header = header

	c := &Converter{cfg: cfg, log: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Converter) Config() types.ConversionConfig {
	return c.cfg
}

// ConvertFile converts inputPath with the default settings and returns the
// path of the file it wrote.
func ConvertFile(ctx context.Context, inputPath string) (string, error) {
	c, err := NewConverter(types.DefaultConversionConfig())
	if err != nil {
		return "", err
	}
	res, err := c.Convert(ctx, inputPath)
	if err != nil {
		return "", err
	}
	return res.OutputPath, nil
}

// Convert reads inputPath line by line, shifts each bar, and writes the
// result to OutputPath(inputPath, suffix).
//
// The conversion is all or nothing: lines are written to a temporary file in
// the output directory which is renamed over the output path only after the
// last line succeeded. On failure the temporary file is removed and any
// existing output file is left as it was.
func (c *Converter) Convert(ctx context.Context, inputPath string) (types.ConversionResult, error) {
	start := time.Now()
	result := types.ConversionResult{
		InputPath:  inputPath,
		OutputPath: OutputPath(inputPath, c.cfg.Suffix),
	}
	log := c.log.WithFields(
		logging.NewField("input", inputPath),
		logging.NewField("output", result.OutputPath),
	)

	in, err := os.Open(inputPath)
	if err != nil {
		return result, &FileAccessError{Op: "open input", Path: inputPath, Err: err}
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return result, &FileAccessError{Op: "stat input", Path: inputPath, Err: err}
	}
	if info.IsDir() {
		return result, &FileAccessError{Op: "open input", Path: inputPath, Err: errors.New("is a directory")}
	}
	log.Debug("reading input", logging.NewField("bytes", info.Size()))

	outDir := filepath.Dir(result.OutputPath)
	tmp, err := os.CreateTemp(outDir, "."+filepath.Base(result.OutputPath)+".*.tmp")
	if err != nil {
		return result, &FileAccessError{Op: "create output", Path: result.OutputPath, Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := c.transform(ctx, in, info.Size(), w, &result); err != nil {
		log.Debug("conversion failed", logging.NewField("lines", result.Lines), logging.NewField("error", err.Error()))
		return result, err
	}

	if err := w.Flush(); err != nil {
		return result, &FileAccessError{Op: "write output", Path: result.OutputPath, Err: err}
	}
	if err := tmp.Chmod(0o644); err != nil {
		return result, &FileAccessError{Op: "write output", Path: result.OutputPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return result, &FileAccessError{Op: "close output", Path: result.OutputPath, Err: err}
	}
	if err := os.Rename(tmp.Name(), result.OutputPath); err != nil {
		return result, &FileAccessError{Op: "write output", Path: result.OutputPath, Err: err}
	}
	committed = true

	if c.progress != nil {
		c.progress(100)
	}
	result.Duration = time.Since(start)
	log.Info("conversion finished",
		logging.NewField("lines", result.Lines),
		logging.NewField("records", result.Records),
		logging.NewField("blank", result.Blank),
		logging.NewField("header_kept", result.HeaderKept),
		logging.NewField("duration", result.Duration),
	)
	return result, nil
}

// transform copies r to w one line at a time. Line terminators ("\n" or
// "\r\n") are kept per line, so a file without a trailing newline stays
// without one.
func (c *Converter) transform(ctx context.Context, r io.Reader, size int64, w *bufio.Writer, result *types.ConversionResult) error {
	br := bufio.NewReader(r)
	var consumed int64

	for lineNo := 1; ; lineNo++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("conversion stopped before line %d: %w", lineNo, err)
		}

		raw, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return &FileAccessError{Op: "read input", Path: result.InputPath, Err: readErr}
		}
		if raw == "" {
			return nil
		}
		consumed += int64(len(raw))

		body, eol := splitTerminator(raw)
		prefix := ""
		if lineNo == 1 && strings.HasPrefix(body, utf8BOM) {
			prefix, body = utf8BOM, strings.TrimPrefix(body, utf8BOM)
		}

		out, err := c.line(lineNo, body, result)
		if err != nil {
			return err
		}
		if _, err := w.WriteString(prefix + out + eol); err != nil {
			return &FileAccessError{Op: "write output", Path: result.OutputPath, Err: err}
		}
		result.Lines++

		if c.progress != nil && size > 0 && lineNo%c.cfg.ProgressEvery == 0 {
			c.progress(float64(consumed) / float64(size) * 100)
		}

		if readErr == io.EOF {
			return nil
		}
	}
}

// line converts one input line without its terminator.
func (c *Converter) line(lineNo int, body string, result *types.ConversionResult) (string, error) {
	if strings.TrimSpace(body) == "" {
		result.Blank++
		return body, nil
	}

	bar, err := ParseBar(body)
	if lineNo == 1 {
		switch {
		case c.cfg.Header == types.HeaderKeep:
			result.HeaderKept = true
			return body, nil
		case c.cfg.Header == types.HeaderAuto && err != nil:
			c.log.Debug("first line kept as header", logging.NewField("content", body))
			result.HeaderKept = true
			return body, nil
		}
	}
	if err != nil {
		return "", &ParseError{Line: lineNo, Content: body, Err: err}
	}

	bar = Shift(bar, c.cfg.Offset)
	if c.sink != nil {
		if err := c.sink.WriteBar(bar); err != nil {
			return "", fmt.Errorf("line %d: forwarding bar: %w", lineNo, err)
		}
	}
	result.Records++
	return FormatBar(bar), nil
}

func splitTerminator(raw string) (body, eol string) {
	switch {
	case strings.HasSuffix(raw, "\r\n"):
		return raw[:len(raw)-2], "\r\n"
	case strings.HasSuffix(raw, "\n"):
		return raw[:len(raw)-1], "\n"
	default:
		return raw, ""
	}
}
