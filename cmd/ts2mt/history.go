// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ts2mt/internal/history"
	"github.com/pdiddy/ts2mt/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded conversions",
	Long: `History lists past convert runs from the local history database,
newest first, with their outcome and line counts. Use the export
subcommand to write the log to YAML or JSON.`,
	RunE: runHistoryList,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the conversion history to YAML or JSON",
	Long: `Export writes the recorded conversions (or a filtered subset) to
export.yaml or export.json in the history directory.`,
	RunE: runHistoryExport,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	opts, err := listOptsFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatHistory(cmd.OutOrStdout(), records, jsonOutput)
}

func formatHistory(w io.Writer, records []types.ConversionRecord, jsonOutput bool) error {
	if jsonOutput {
		if records == nil {
			records = []types.ConversionRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No conversions recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-5s  %-20s  %-9s  %-8s  %-40s  %s\n",
		"ID", "Started", "Status", "Records", "Input", "Detail")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range records {
		input := r.InputPath
		if len(input) > 40 {
			input = "..." + input[len(input)-37:]
		}
		detail := r.OutputPath
		switch {
		case r.Status == types.ConversionFailed:
			detail = r.ErrorKind + ": " + r.ErrorMessage
		case r.ErrorKind != "":
			detail += " (" + r.ErrorKind + ": " + r.ErrorMessage + ")"
		}
		fmt.Fprintf(w, "%-5d  %-20s  %-9s  %-8d  %-40s  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status, r.Records, input, detail)
	}

	fmt.Fprintf(w, "\n%d conversions\n", len(records))
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	opts, err := listOptsFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = store.ExportJSON(cmd.Context(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func openHistory() (*history.Store, error) {
	return history.NewStore(types.HistoryConfig{
		Dir:     viper.GetString("history.dir"),
		Enabled: true,
	})
}

func listOptsFromFlags(cmd *cobra.Command) (history.ListOptions, error) {
	status, _ := cmd.Flags().GetString("status")
	input, _ := cmd.Flags().GetString("input")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := history.ListOptions{
		Status: types.ConversionStatus(status),
		Input:  input,
		Limit:  limit,
	}
	switch opts.Status {
	case "", types.ConversionDone, types.ConversionFailed:
	default:
		return opts, fmt.Errorf("unsupported status %q: use converted or failed", status)
	}
	return opts, nil
}

func init() {
	// Filter flags shared by list and export.
	historyCmd.PersistentFlags().String("status", "", "filter by outcome: converted or failed")
	historyCmd.PersistentFlags().String("input", "", "filter by input path")
	historyCmd.PersistentFlags().Int("limit", 0, "maximum rows (0 = 20 for list, all for export)")

	historyCmd.Flags().Bool("json", false, "output as JSON")
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
