// Package standardize turns raw per-point archive payloads into canonical
// hourly records: unit conversions, derived quantities, and payload decoding
// for both archive endpoints.
package standardize

import (
	"math"
	"time"

	"github.com/justinfmccarty/weather-file-builder/internal/domain"
)

// Short physical names used inside archive payloads.
const (
	fieldTemperature   = "t2m"
	fieldDewPoint      = "d2m"
	fieldSkinTemp      = "skt"
	fieldPressure      = "sp"
	fieldSeaLevel      = "msl"
	fieldWindU         = "u10"
	fieldWindV         = "v10"
	fieldSolar         = "ssrd"
	fieldThermal       = "strd"
	fieldCloudCover    = "tcc"
	fieldPrecipitation = "tp"
)

// PointSeries is a decoded payload reduced to the target point: parallel
// per-field value slices aligned with Times. NaN marks a missing value.
type PointSeries struct {
	Times  []time.Time
	Fields map[string][]float64
}

// ERA5 adapts the package to the orchestrator's Standardizer interface.
type ERA5 struct{}

// MonthRecords decodes a gridded monthly payload, extracts the nearest grid
// point to (lat, lon), and standardizes it.
func (ERA5) MonthRecords(payload []byte, lat, lon float64) ([]domain.HourlyRecord, error) {
	series, err := DecodeGrid(payload, lat, lon)
	if err != nil {
		return nil, err
	}
	return Records(series), nil
}

// RangeRecords decodes a timeseries zip bundle and standardizes it.
func (ERA5) RangeRecords(payload []byte) ([]domain.HourlyRecord, error) {
	series, err := DecodeRangeBundle(payload)
	if err != nil {
		return nil, err
	}
	return Records(series), nil
}

// Records converts a point series to canonical hourly records. Fields appear
// in a record's Values only when their source variables are present and
// non-missing for that hour.
func Records(s PointSeries) []domain.HourlyRecord {
	get := func(field string, i int) (float64, bool) {
		col, ok := s.Fields[field]
		if !ok || i >= len(col) || math.IsNaN(col[i]) {
			return 0, false
		}
		return col[i], true
	}

	records := make([]domain.HourlyRecord, 0, len(s.Times))
	for i, ts := range s.Times {
		ts = ts.UTC()
		vals := domain.Values{}

		// Temperature family: Kelvin to Celsius.
		if t, ok := get(fieldTemperature, i); ok {
			vals[domain.VarTemperature] = t - 273.15
		}
		if d, ok := get(fieldDewPoint, i); ok {
			vals[domain.VarDewPoint] = d - 273.15
		}
		if sk, ok := get(fieldSkinTemp, i); ok {
			vals[domain.VarSkinTemperature] = sk - 273.15
		}

		// Pressure: Pa to hPa.
		if p, ok := get(fieldPressure, i); ok {
			vals[domain.VarPressure] = p / 100.0
		}
		if p, ok := get(fieldSeaLevel, i); ok {
			vals[domain.VarSeaLevelPressure] = p / 100.0
		}

		if t, okT := vals[domain.VarTemperature]; okT {
			if d, okD := vals[domain.VarDewPoint]; okD {
				vals[domain.VarRelativeHumidity] = RelativeHumidity(t, d)
			}
		}

		// Wind vector to speed and meteorological direction.
		if u, okU := get(fieldWindU, i); okU {
			if v, okV := get(fieldWindV, i); okV {
				vals[domain.VarWindSpeed] = math.Hypot(u, v)
				vals[domain.VarWindDirection] = math.Mod(radToDeg(math.Atan2(u, v))+360, 360)
			}
		}

		// Solar: accumulated J/m² over the hour to mean W/m².
		if ssrd, ok := get(fieldSolar, i); ok {
			ghi := ssrd / 3600.0
			vals[domain.VarGHI] = ghi
			if tcc, okC := get(fieldCloudCover, i); okC {
				// Cloud-factor split; a proper decomposition needs a solar
				// position model, which is out of scope here.
				dni := ghi * (1 - tcc) * 0.8
				vals[domain.VarDNI] = dni
				vals[domain.VarDHI] = ghi - dni*0.8
			} else {
				vals[domain.VarDNI] = ghi * 0.7
				vals[domain.VarDHI] = ghi * 0.3
			}
		}
		if strd, ok := get(fieldThermal, i); ok {
			vals[domain.VarThermalRadiation] = strd / 3600.0
		}

		if tcc, ok := get(fieldCloudCover, i); ok {
			vals[domain.VarCloudCover] = tcc
		}

		// Precipitation: m to mm.
		if tp, ok := get(fieldPrecipitation, i); ok {
			vals[domain.VarPrecipitation] = tp * 1000.0
		}

		records = append(records, domain.HourlyRecord{
			Year:   ts.Year(),
			Month:  int(ts.Month()),
			Day:    ts.Day(),
			Hour:   ts.Hour(),
			Minute: 0, // the archive is hourly
			Values: vals,
		})
	}
	return records
}

// RelativeHumidity derives RH (%) from air and dew point temperature (°C)
// using the Magnus saturation vapor pressure formula.
func RelativeHumidity(tempC, dewC float64) float64 {
	es := saturationVaporPressure(tempC)
	e := saturationVaporPressure(dewC)
	return (e / es) * 100.0
}

func saturationVaporPressure(t float64) float64 {
	return 6.112 * math.Exp(17.67*t/(t+243.5))
}

func radToDeg(r float64) float64 {
	return r * 180.0 / math.Pi
}
