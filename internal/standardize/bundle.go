package standardize

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"
)

// DecodeRangeBundle parses the timeseries endpoint's compressed bundle: one
// CSV per variable, each keyed by valid_time, merged into one point series.
// Constant latitude/longitude columns are dropped.
func DecodeRangeBundle(payload []byte) (PointSeries, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return PointSeries{}, fmt.Errorf("open range bundle: %w", err)
	}

	// valid_time → field → value. The per-variable exports can cover
	// slightly different spans, so the merge is an outer join.
	merged := make(map[time.Time]map[string]float64)
	fieldNames := make(map[string]bool)

	for _, zf := range zr.File {
		if err := mergeCSV(zf, merged, fieldNames); err != nil {
			return PointSeries{}, fmt.Errorf("%s: %w", zf.Name, err)
		}
	}
	if len(merged) == 0 {
		return PointSeries{}, fmt.Errorf("range bundle contains no rows")
	}

	times := make([]time.Time, 0, len(merged))
	for ts := range merged {
		times = append(times, ts)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	fields := make(map[string][]float64, len(fieldNames))
	for name := range fieldNames {
		col := make([]float64, len(times))
		for i, ts := range times {
			if v, ok := merged[ts][name]; ok {
				col[i] = v
			} else {
				col[i] = math.NaN()
			}
		}
		fields[name] = col
	}

	return PointSeries{Times: times, Fields: fields}, nil
}

func mergeCSV(zf *zip.File, merged map[time.Time]map[string]float64, fieldNames map[string]bool) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	timeCol := -1
	valueCols := make(map[int]string)
	for i, name := range header {
		switch name {
		case "valid_time":
			timeCol = i
		case "latitude", "longitude":
			// constant for point data
		default:
			valueCols[i] = name
			fieldNames[name] = true
		}
	}
	if timeCol == -1 {
		return fmt.Errorf("no valid_time column")
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		ts, err := parseBundleTime(row[timeCol])
		if err != nil {
			return err
		}
		if merged[ts] == nil {
			merged[ts] = make(map[string]float64)
		}
		for i, name := range valueCols {
			if i >= len(row) || row[i] == "" {
				continue
			}
			v, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				return fmt.Errorf("parse %s at %s: %w", name, row[timeCol], err)
			}
			merged[ts][name] = v
		}
	}
}

func parseBundleTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse valid_time %q", raw)
}
