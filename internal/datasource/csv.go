package datasource

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/scorelab/internal/series"
)

var csvHeader = []string{"date", "open", "high", "low", "close", "volume"}

// EncodeCSV renders bars as date,open,high,low,close,volume rows
func EncodeCSV(bars []series.Bar) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, b := range bars {
		row := []string{
			b.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'g', -1, 64),
			strconv.FormatFloat(b.High, 'g', -1, 64),
			strconv.FormatFloat(b.Low, 'g', -1, 64),
			strconv.FormatFloat(b.Close, 'g', -1, 64),
			strconv.FormatFloat(b.Volume, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// DecodeCSV parses a daily CSV with a header row. Column names are matched
// case-insensitively, extra columns such as "Adj Close" are ignored and rows
// with a missing or non-numeric price are skipped.
func DecodeCSV(r io.Reader) ([]series.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["datetime"]; ok {
		col["date"] = col["datetime"]
	}
	for _, name := range csvHeader[:5] {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("csv is missing column %q", name)
		}
	}

	var bars []series.Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		t, err := parseDate(field("date"))
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		b := series.Bar{Time: t}
		ok := true
		for _, p := range []struct {
			name string
			dst  *float64
		}{
			{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low}, {"close", &b.Close},
		} {
			v, err := strconv.ParseFloat(field(p.name), 64)
			if err != nil {
				ok = false
				break
			}
			*p.dst = v
		}
		if !ok {
			continue
		}
		if v, err := strconv.ParseFloat(field("volume"), 64); err == nil {
			b.Volume = v
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
