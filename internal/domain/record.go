package domain

import (
	"fmt"
	"time"
)

// HourlyRecord is one canonical observation at the target point. Values is a
// sparse mapping keyed by display name; a variable that was not requested (or
// was missing upstream) has no entry.
type HourlyRecord struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	Values Values `json:"values"`
}

// Values maps display names to physical quantities.
type Values map[string]float64

// Value returns the named quantity and whether it is present.
func (r HourlyRecord) Value(name string) (float64, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// Dataset is an ordered sequence of hourly records. Records are grouped by
// (year, month) and preserve source ordering within a group.
type Dataset []HourlyRecord

// Years returns the distinct years in first-appearance order.
func (d Dataset) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, r := range d {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	return years
}

// HasVariable reports whether any record carries the named variable.
func (d Dataset) HasVariable(name string) bool {
	for _, r := range d {
		if _, ok := r.Values[name]; ok {
			return true
		}
	}
	return false
}

// MonthYear returns the records for one (month, year) group in source order.
func (d Dataset) MonthYear(month, year int) Dataset {
	var out Dataset
	for _, r := range d {
		if r.Month == month && r.Year == year {
			out = append(out, r)
		}
	}
	return out
}

// FetchUnit identifies one atomic archive request. Immutable once created:
// either a (year, month) pair for the monthly endpoint or a start/end range
// for the timeseries endpoint.
type FetchUnit struct {
	Lat       float64
	Lon       float64
	Year      int
	Month     int
	Start     time.Time
	End       time.Time
	Variables []string // archive long names
}

// MonthUnit creates a fetch unit for one calendar month.
func MonthUnit(lat, lon float64, year, month int, variables []string) FetchUnit {
	return FetchUnit{Lat: lat, Lon: lon, Year: year, Month: month, Variables: variables}
}

// RangeUnit creates a fetch unit for an explicit date range.
func RangeUnit(lat, lon float64, start, end time.Time, variables []string) FetchUnit {
	return FetchUnit{Lat: lat, Lon: lon, Start: start, End: end, Variables: variables}
}

// IsRange reports whether the unit targets the timeseries endpoint.
func (u FetchUnit) IsRange() bool {
	return u.Month == 0
}

// Key returns the unit's logical position for slot-indexed aggregation.
func (u FetchUnit) Key() UnitKey {
	return UnitKey{Year: u.Year, Month: u.Month}
}

func (u FetchUnit) String() string {
	if u.IsRange() {
		return fmt.Sprintf("range %s/%s at (%.2f, %.2f)",
			u.Start.Format("2006-01-02"), u.End.Format("2006-01-02"), u.Lat, u.Lon)
	}
	return fmt.Sprintf("month %d-%02d at (%.2f, %.2f)", u.Year, u.Month, u.Lat, u.Lon)
}

// UnitKey is the (year, month) identity of a monthly fetch unit.
type UnitKey struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (k UnitKey) String() string {
	return fmt.Sprintf("%d-%02d", k.Year, k.Month)
}
