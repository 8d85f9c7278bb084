// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/ts2mt/pkg/types"
)

const (
	// DateLayout and TimeLayout are the output forms, zero-padded, 24-hour clock.
	DateLayout = "01/02/2006"
	TimeLayout = "15:04"

	// Parsing accepts one-digit months, days, and hours as well.
	parseDateLayout = "1/2/2006"
	parseTimeLayout = "15:04"

	separator = ","
)

var errTooFewFields = errors.New("expected date and time fields")

// OutputPath returns the output file for inputPath: the same directory and
// extension with suffix inserted before the extension. DATA.txt becomes
// DATA_MT.txt; a name without an extension gets the suffix appended.
func OutputPath(inputPath, suffix string) string {
	dir, name := filepath.Split(inputPath)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		// Dotfiles such as ".txt" have no stem; treat the whole name as one.
		stem, ext = name, ""
	}
	return filepath.Join(dir, stem+suffix+ext)
}

// ParseBar splits line on commas and parses the first two fields as a
// MM/DD/YYYY date and HH:MM time. Surrounding spaces on those two fields are
// ignored. The remaining fields are kept verbatim.
func ParseBar(line string) (types.Bar, error) {
	parts := strings.Split(line, separator)
	if len(parts) < 2 {
		return types.Bar{}, errTooFewFields
	}

	day, err := time.Parse(parseDateLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return types.Bar{}, fmt.Errorf("invalid date %q", parts[0])
	}
	clock, err := time.Parse(parseTimeLayout, strings.TrimSpace(parts[1]))
	if err != nil {
		return types.Bar{}, fmt.Errorf("invalid time %q", parts[1])
	}

	ts := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
	return types.Bar{Timestamp: ts, Fields: parts[2:]}, nil
}

// FormatBar renders b in the input layout: date, time, then the trailing fields.
func FormatBar(b types.Bar) string {
	var sb strings.Builder
	sb.WriteString(b.Timestamp.Format(DateLayout))
	sb.WriteString(separator)
	sb.WriteString(b.Timestamp.Format(TimeLayout))
	for _, f := range b.Fields {
		sb.WriteString(separator)
		sb.WriteString(f)
	}
	return sb.String()
}

// Shift returns b with offset subtracted from its timestamp. Calendar
// rollover across days, months, years, and leap days follows time.Time.
func Shift(b types.Bar, offset time.Duration) types.Bar {
	b.Timestamp = b.Timestamp.Add(-offset)
	return b
}

// ShiftLine parses line, subtracts offset, and formats the result.
func ShiftLine(line string, offset time.Duration) (string, error) {
	b, err := ParseBar(line)
	if err != nil {
		return "", err
	}
	return FormatBar(Shift(b, offset)), nil
}
