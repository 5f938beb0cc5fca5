package standardize

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// gridPayload is the monthly endpoint's gridded point export: per-variable
// value arrays flattened [time][lat][lon], nulls for missing values.
type gridPayload struct {
	Latitude  []float64             `json:"latitude"`
	Longitude []float64             `json:"longitude"`
	ValidTime []string              `json:"valid_time"`
	Variables map[string][]*float64 `json:"variables"`
}

// DecodeGrid parses a gridded payload and reduces it to the grid point
// nearest to (lat, lon).
func DecodeGrid(payload []byte, lat, lon float64) (PointSeries, error) {
	var grid gridPayload
	if err := json.Unmarshal(payload, &grid); err != nil {
		return PointSeries{}, fmt.Errorf("decode grid payload: %w", err)
	}
	if len(grid.Latitude) == 0 || len(grid.Longitude) == 0 || len(grid.ValidTime) == 0 {
		return PointSeries{}, fmt.Errorf("grid payload missing axes")
	}

	iLat := nearestIndex(grid.Latitude, lat)
	iLon := nearestIndex(grid.Longitude, lon)
	nLat, nLon, nTime := len(grid.Latitude), len(grid.Longitude), len(grid.ValidTime)

	times := make([]time.Time, nTime)
	for i, raw := range grid.ValidTime {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return PointSeries{}, fmt.Errorf("parse valid_time %q: %w", raw, err)
		}
		times[i] = ts
	}

	fields := make(map[string][]float64, len(grid.Variables))
	for name, flat := range grid.Variables {
		if len(flat) != nTime*nLat*nLon {
			return PointSeries{}, fmt.Errorf("variable %s: got %d values, want %d", name, len(flat), nTime*nLat*nLon)
		}
		col := make([]float64, nTime)
		for t := 0; t < nTime; t++ {
			v := flat[t*nLat*nLon+iLat*nLon+iLon]
			if v == nil {
				col[t] = math.NaN()
			} else {
				col[t] = *v
			}
		}
		fields[name] = col
	}

	return PointSeries{Times: times, Fields: fields}, nil
}

func nearestIndex(axis []float64, target float64) int {
	best := 0
	bestDist := math.Abs(axis[0] - target)
	for i, v := range axis[1:] {
		if d := math.Abs(v - target); d < bestDist {
			best = i + 1
			bestDist = d
		}
	}
	return best
}
