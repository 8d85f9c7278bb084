//go:build mage

// Package main contains Mage build targets for ts2mt developer tooling.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "ts2mt"
	cmdPkg  = "./cmd/ts2mt"

	sampleDir  = "testdata"
	sampleFile = "sample.txt"
)

// Default target when mage runs without arguments.
var Default = Build

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests. go-sqlite3 needs cgo.
func Test() error {
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "./...")
}

// Sample writes testdata/sample.txt: one trading day of one-minute EURUSD
// bars in TradeStation export layout, starting at midnight so the first
// converted bar rolls back to the previous day.
func Sample() error {
	if err := os.MkdirAll(sampleDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", sampleDir, err)
	}
	path := filepath.Join(sampleDir, sampleFile)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	price := 1.0850
	for i := 0; i < 24*60; i++ {
		ts := start.Add(time.Duration(i) * time.Minute)
		step := float64(i%7-3) * 0.0001
		open, closePx := price, price+step
		high, low := max(open, closePx)+0.0002, min(open, closePx)-0.0002
		fmt.Fprintf(w, "%s,%s,%.4f,%.4f,%.4f,%.4f,%d\n",
			ts.Format("01/02/2006"), ts.Format("15:04"), open, high, low, closePx, 50+i%40)
		price = closePx
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// Convert builds the CLI and converts the sample file.
func Convert() error {
	mg.Deps(Build, Sample)
	return sh.RunV(filepath.Join(binDir, binName), "convert", "--no-history",
		filepath.Join(sampleDir, sampleFile))
}

// Stats prints Go production and test line counts.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	return nil
}

// countGoLines walks the directory tree and counts non-blank lines in Go files.
// If testOnly is true, count only _test.go files; otherwise count non-test .go files.
// Directories starting with "_" or "." are skipped, as the go tool does.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name[0] == '_' || name[0] == '.') {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		isTest := len(path) > 8 && path[len(path)-8:] == "_test.go"
		if testOnly != isTest {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		defer f.Close()
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) != "" {
				total++
			}
		}
		return sc.Err()
	})
	return total, err
}
