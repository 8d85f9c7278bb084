// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ts2mt/internal/history"
	"github.com/pdiddy/ts2mt/internal/sidecar"
	"github.com/pdiddy/ts2mt/pkg/types"
)

// executeCommand runs the root command with args and returns stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeCommandStreams(t, args...)
	return out, err
}

// executeCommandStreams runs the root command with args and returns stdout
// and stderr.
func executeCommandStreams(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeExport(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "EURUSD.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(dir string) types.Config {
	return types.Config{
		Convert: types.DefaultConversionConfig(),
		History: types.HistoryConfig{Dir: filepath.Join(dir, "history"), Enabled: true},
	}
}

func TestConvertOne(t *testing.T) {
	dir := t.TempDir()
	in := writeExport(t, dir, "03/15/2024,09:31,1.2345,1.2350,1.2340,1.2348,120\n")
	cfg := testConfig(dir)
	cfg.Convert.Parquet = true

	var out, errOut bytes.Buffer
	err := convertOne(context.Background(), in, cfg, &out, &errOut, true)
	require.NoError(t, err)

	mt := filepath.Join(dir, "EURUSD_MT.txt")
	assert.Contains(t, out.String(), "converted: "+in+" -> "+mt+" (1 records)")
	assert.Contains(t, errOut.String(), "progress: 100%")

	data, err := os.ReadFile(mt)
	require.NoError(t, err)
	assert.Equal(t, "03/15/2024,09:30,1.2345,1.2350,1.2340,1.2348,120\n", string(data))

	sidecarPath := filepath.Join(dir, "EURUSD_MT.txt.parquet")
	assert.Contains(t, out.String(), "sidecar:   "+sidecarPath)
	rows, err := sidecar.ReadRows(sidecarPath)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "09:30", rows[0].Time)

	store, err := history.NewStore(cfg.History)
	require.NoError(t, err)
	defer store.Close()
	recs, err := store.List(context.Background(), history.ListOptions{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, types.ConversionDone, recs[0].Status)
	assert.Equal(t, 1, recs[0].Records)
	assert.Equal(t, mt, recs[0].OutputPath)
}

func TestConvertOne_ParseFailureRecorded(t *testing.T) {
	dir := t.TempDir()
	in := writeExport(t, dir, "notadate,09:31,1.0,1.0,1.0,1.0,1\n")
	cfg := testConfig(dir)

	var out, errOut bytes.Buffer
	err := convertOne(context.Background(), in, cfg, &out, &errOut, false)
	require.Error(t, err)
	assert.Empty(t, out.String())
	assert.Contains(t, err.Error(), "line 1")

	_, statErr := os.Stat(filepath.Join(dir, "EURUSD_MT.txt"))
	assert.True(t, os.IsNotExist(statErr))

	store, err := history.NewStore(cfg.History)
	require.NoError(t, err)
	defer store.Close()
	recs, err := store.List(context.Background(), history.ListOptions{Status: types.ConversionFailed})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "parse", recs[0].ErrorKind)
	assert.Contains(t, recs[0].ErrorMessage, "notadate")
}

func TestConvertOne_ParquetInputKeepsTextOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "DATA.parquet")
	require.NoError(t, os.WriteFile(in, []byte("03/15/2024,09:31,1.5\n"), 0o644))
	cfg := testConfig(dir)
	cfg.Convert.Parquet = true

	var out, errOut bytes.Buffer
	require.NoError(t, convertOne(context.Background(), in, cfg, &out, &errOut, false))

	mt := filepath.Join(dir, "DATA_MT.parquet")
	data, err := os.ReadFile(mt)
	require.NoError(t, err)
	assert.Equal(t, "03/15/2024,09:30,1.5\n", string(data))

	rows, err := sidecar.ReadRows(filepath.Join(dir, "DATA_MT.parquet.parquet"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1.5"}, rows[0].Fields)
}

func TestConvertOne_SidecarFailureRecorded(t *testing.T) {
	dir := t.TempDir()
	in := writeExport(t, dir, "03/15/2024,09:31,1.5\n")
	cfg := testConfig(dir)
	cfg.Convert.Parquet = true

	// A non-empty directory at the sidecar path makes the final rename fail.
	blocked := filepath.Join(dir, "EURUSD_MT.txt.parquet")
	require.NoError(t, os.Mkdir(blocked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocked, "keep"), []byte("x"), 0o644))

	var out, errOut bytes.Buffer
	err := convertOne(context.Background(), in, cfg, &out, &errOut, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, sidecar.ErrSidecar)
	assert.Contains(t, out.String(), "converted: ")
	assert.NotContains(t, out.String(), "sidecar:")

	data, err := os.ReadFile(filepath.Join(dir, "EURUSD_MT.txt"))
	require.NoError(t, err)
	assert.Equal(t, "03/15/2024,09:30,1.5\n", string(data))

	store, err := history.NewStore(cfg.History)
	require.NoError(t, err)
	defer store.Close()
	recs, err := store.List(context.Background(), history.ListOptions{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, types.ConversionDone, recs[0].Status)
	assert.Equal(t, "sidecar", recs[0].ErrorKind)
	assert.Equal(t, 1, recs[0].Records)
}

func TestConvertOne_HistoryDisabled(t *testing.T) {
	dir := t.TempDir()
	in := writeExport(t, dir, "03/15/2024,09:31,1\n")
	cfg := testConfig(dir)
	cfg.History.Enabled = false

	var out, errOut bytes.Buffer
	require.NoError(t, convertOne(context.Background(), in, cfg, &out, &errOut, false))

	_, err := os.Stat(filepath.Join(dir, "history"))
	assert.True(t, os.IsNotExist(err))
}

func TestFormatHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatHistory(&buf, nil, false))
	assert.Contains(t, buf.String(), "No conversions recorded.")

	buf.Reset()
	require.NoError(t, formatHistory(&buf, nil, true))
	assert.JSONEq(t, "[]", buf.String())

	buf.Reset()
	recs := []types.ConversionRecord{
		{ID: 3, InputPath: "c.txt", OutputPath: "c_MT.txt", Status: types.ConversionDone, ErrorKind: "sidecar", ErrorMessage: "disk full"},
		{ID: 2, InputPath: "b.txt", Status: types.ConversionFailed, ErrorKind: "parse", ErrorMessage: "line 4"},
		{ID: 1, InputPath: "a.txt", OutputPath: "a_MT.txt", Status: types.ConversionDone, Records: 9},
	}
	require.NoError(t, formatHistory(&buf, recs, false))
	out := buf.String()
	assert.Contains(t, out, "c_MT.txt (sidecar: disk full)")
	assert.Contains(t, out, "parse: line 4")
	assert.Contains(t, out, "a_MT.txt")
	assert.Contains(t, out, "3 conversions")
}

func TestCLI_ConvertAndHistory(t *testing.T) {
	dir := t.TempDir()
	in := writeExport(t, dir, "Date,Time,Open,High,Low,Close,Volume\n01/01/2024,00:00,1.1000,1.1005,1.0995,1.1002,50\n")
	historyDir := filepath.Join(dir, "history")

	out, err := executeCommand(t, "convert", in,
		"--header", "auto", "--suffix", "_MT", "--offset", "1m",
		"--history-dir", historyDir)
	require.NoError(t, err)
	assert.Contains(t, out, "converted:")

	data, err := os.ReadFile(filepath.Join(dir, "EURUSD_MT.txt"))
	require.NoError(t, err)
	assert.Equal(t,
		"Date,Time,Open,High,Low,Close,Volume\n12/31/2023,23:59,1.1000,1.1005,1.0995,1.1002,50\n",
		string(data))

	out, err = executeCommand(t, "history", "--json", "--history-dir", historyDir)
	require.NoError(t, err)
	var recs []types.ConversionRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.True(t, recs[0].HeaderKept)
	assert.Equal(t, 1, recs[0].Records)

	out, err = executeCommand(t, "history", "export", "--format", "json", "--history-dir", historyDir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(historyDir, "export.json"))
}

func TestCLI_ConvertFailureReportedOnce(t *testing.T) {
	dir := t.TempDir()
	in := writeExport(t, dir, "notadate,09:31,1.0\n")

	out, errOut, err := executeCommandStreams(t, "convert", in,
		"--header", "none", "--history-dir", filepath.Join(dir, "history"))
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, strings.Count(errOut, "line 1:"), errOut)
	assert.Contains(t, errOut, "Error: converting "+in)
}

func TestCLI_ConvertRequiresOneFile(t *testing.T) {
	_, err := executeCommand(t, "convert")
	assert.Error(t, err)
}

func TestCLI_Version(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ts2mt dev\n", out)
}
