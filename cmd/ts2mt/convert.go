// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ts2mt/internal/convert"
	"github.com/pdiddy/ts2mt/internal/history"
	"github.com/pdiddy/ts2mt/internal/logging"
	"github.com/pdiddy/ts2mt/internal/sidecar"
	"github.com/pdiddy/ts2mt/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert one TradeStation export to MetaTrader format",
	Long: `Convert reads a TradeStation bar export (MM/DD/YYYY,HH:MM,open,high,low,close,...),
moves every timestamp back by the offset (one minute by default), and writes
the rows to <name>_MT.<ext> in the same directory. Columns after the time are
copied unchanged.

The output is written only if every line converts. A line that is not a bar
stops the conversion and is reported with its line number.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("suffix", types.DefaultSuffix, "suffix inserted before the output file extension")
	convertCmd.Flags().Duration("offset", types.DefaultOffset, "time subtracted from every bar")
	convertCmd.Flags().String("header", string(types.HeaderNone), "first line handling: none, keep, or auto")
	convertCmd.Flags().Bool("parquet", false, "also write the shifted bars to <name>_MT.<ext>.parquet")
	convertCmd.Flags().Bool("progress", false, "print progress to stderr")
	convertCmd.Flags().Bool("no-history", false, "do not record this run in the history database")

	viper.BindPFlag("convert.suffix", convertCmd.Flags().Lookup("suffix"))
	viper.BindPFlag("convert.offset", convertCmd.Flags().Lookup("offset"))
	viper.BindPFlag("convert.header", convertCmd.Flags().Lookup("header"))
	viper.BindPFlag("convert.parquet", convertCmd.Flags().Lookup("parquet"))
	viper.SetDefault("history.enabled", true)

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return convertOne(ctx, args[0], cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), progressEnabled(cmd))
}

func progressEnabled(cmd *cobra.Command) bool {
	on, _ := cmd.Flags().GetBool("progress")
	return on
}

// loadConfig merges flags, environment, and the config file.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	header, err := types.ParseHeaderMode(viper.GetString("convert.header"))
	if err != nil {
		return types.Config{}, err
	}

	cfg := types.Config{
		Convert: types.ConversionConfig{
			Suffix:  viper.GetString("convert.suffix"),
			Offset:  viper.GetDuration("convert.offset"),
			Header:  header,
			Parquet: viper.GetBool("convert.parquet"),
		},
		History: types.HistoryConfig{
			Dir:     viper.GetString("history.dir"),
			Enabled: viper.GetBool("history.enabled"),
		},
		Log: types.LogConfig{Level: viper.GetString("log.level")},
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		cfg.History.Enabled = false
	}
	return cfg, nil
}

// convertOne runs a conversion, prints the outcome to out, and records it in
// the history store. Success lines go to out; warnings and progress to errOut.
// A failure is only returned, and printed once by cobra.
func convertOne(ctx context.Context, inputPath string, cfg types.Config, out, errOut io.Writer, showProgress bool) error {
	started := time.Now()

	var opts []convert.Option
	opts = append(opts, convert.WithLogger(logger))
	if showProgress {
		opts = append(opts, convert.WithProgress(func(p float64) {
			fmt.Fprintf(errOut, "\rprogress: %3.0f%%", p)
			if p >= 100 {
				fmt.Fprintln(errOut)
			}
		}))
	}
	var bars *sidecar.Writer
	if cfg.Convert.Parquet {
		bars = &sidecar.Writer{}
		opts = append(opts, convert.WithSink(bars))
	}

	result := types.ConversionResult{InputPath: inputPath, OutputPath: convert.OutputPath(inputPath, cfg.Convert.Suffix)}
	offset := cfg.Convert.Offset
	c, err := convert.NewConverter(cfg.Convert, opts...)
	if err == nil {
		offset = c.Config().Offset
		result, err = c.Convert(ctx, inputPath)
	}
	if err == nil && bars != nil {
		err = flushSidecar(bars, result.OutputPath)
	}

	recordRun(ctx, cfg, result, offset, started, err, errOut)

	if err != nil && !errors.Is(err, sidecar.ErrSidecar) {
		return fmt.Errorf("converting %s: %w", inputPath, err)
	}

	fmt.Fprintf(out, "converted: %s -> %s (%d records)\n", result.InputPath, result.OutputPath, result.Records)
	if err != nil {
		return fmt.Errorf("converting %s: %w", inputPath, err)
	}
	if bars != nil {
		fmt.Fprintf(out, "sidecar:   %s\n", sidecar.Path(result.OutputPath))
	}
	return nil
}

// flushSidecar writes the buffered bars next to outputPath. It refuses a
// sidecar path that would replace the converted output.
func flushSidecar(bars *sidecar.Writer, outputPath string) error {
	path := sidecar.Path(outputPath)
	if filepath.Clean(path) == filepath.Clean(outputPath) {
		return fmt.Errorf("%w: %s would overwrite the converted output", sidecar.ErrSidecar, path)
	}
	return bars.Flush(path)
}

// recordRun writes the outcome to the history store. Failures to record are
// warnings and never change the conversion result.
func recordRun(ctx context.Context, cfg types.Config, result types.ConversionResult, offset time.Duration, started time.Time, convErr error, errOut io.Writer) {
	if !cfg.History.Enabled {
		return
	}

	store, err := history.NewStore(cfg.History)
	if err != nil {
		fmt.Fprintf(errOut, "warning: history not recorded: %v\n", err)
		return
	}
	defer store.Close()

	rec := types.ConversionRecord{
		InputPath:  result.InputPath,
		OutputPath: result.OutputPath,
		Status:     types.ConversionDone,
		Lines:      result.Lines,
		Records:    result.Records,
		Blank:      result.Blank,
		HeaderKept: result.HeaderKept,
		Offset:     offset,
		StartedAt:  started,
		Duration:   time.Since(started),
	}
	switch {
	case errors.Is(convErr, sidecar.ErrSidecar):
		// The MetaTrader file is committed; only the extra copy is missing.
		rec.ErrorKind = "sidecar"
		rec.ErrorMessage = convErr.Error()
	case convErr != nil:
		rec.Status = types.ConversionFailed
		rec.ErrorKind = convert.ErrorKind(convErr)
		rec.ErrorMessage = convErr.Error()
	}

	// The run context may already be cancelled; the record is still written.
	id, err := store.Record(context.WithoutCancel(ctx), rec)
	if err != nil {
		fmt.Fprintf(errOut, "warning: history not recorded: %v\n", err)
		return
	}
	logger.Debug("history recorded", logging.NewField("id", id), logging.NewField("status", string(rec.Status)))
}
