// Package export writes construction results to flat text formats: the TMY
// file format consumed by PV tooling, and plain tabular CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/justinfmccarty/weather-file-builder/internal/domain"
	"github.com/justinfmccarty/weather-file-builder/internal/tmy"
)

// Irradiance time offset for hourly-accumulated reanalysis irradiance; not
// location dependent.
const irradianceTimeOffset = "0.500"

// tmyColumns maps TMY output columns to the canonical variables backing
// them, in file order. Surface pressure goes back out in Pa.
var tmyColumns = []struct {
	header   string
	variable string
}{
	{"T2m", domain.VarTemperature},
	{"RH", domain.VarRelativeHumidity},
	{"G(h)", domain.VarGHI},
	{"Gb(n)", domain.VarDNI},
	{"Gd(h)", domain.VarDHI},
	{"IR(h)", domain.VarThermalRadiation},
	{"WS10m", domain.VarWindSpeed},
	{"WD10m", domain.VarWindDirection},
	{"SP", domain.VarPressure},
}

// WriteTMY writes a constructed year in TMY format: a four-line location
// header, the 12-line month→year selection table, then the data rows. Only
// columns whose variable appears in the dataset are emitted; missing values
// within an emitted column become 0.
func WriteTMY(w io.Writer, res tmy.Result, lat, lon, elevation float64) error {
	fmt.Fprintf(w, "Latitude (decimal degrees): %v\n", lat)
	fmt.Fprintf(w, "Longitude (decimal degrees): %v\n", lon)
	fmt.Fprintf(w, "Elevation (m): %v\n", elevation)
	fmt.Fprintf(w, "Irradiance Time Offset (h): %s\n", irradianceTimeOffset)

	fmt.Fprintln(w, "month,year")
	for m := 1; m <= 12; m++ {
		fmt.Fprintf(w, "%d,%d\n", m, res.Selection.Year(m))
	}

	var cols []struct {
		header   string
		variable string
	}
	for _, c := range tmyColumns {
		if res.Constructed.HasVariable(c.variable) {
			cols = append(cols, c)
		}
	}

	cw := csv.NewWriter(w)
	header := []string{"time(UTC)"}
	for _, c := range cols {
		header = append(header, c.header)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	// The synthetic year is stamped with the year of creation.
	creationYear := clock.Now().Year()

	for _, r := range res.Constructed {
		row := make([]string, 0, len(cols)+1)
		row = append(row, fmt.Sprintf("%d%02d%02d:%02d%02d", creationYear, r.Month, r.Day, r.Hour, r.Minute))
		for _, c := range cols {
			v, ok := r.Value(c.variable)
			if !ok {
				row = append(row, "0")
				continue
			}
			if c.variable == domain.VarPressure {
				v *= 100 // hPa back to Pa
			}
			row = append(row, formatValue(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// csvColumns is the tabular export's variable order.
var csvColumns = []string{
	domain.VarTemperature,
	domain.VarDewPoint,
	domain.VarSkinTemperature,
	domain.VarPressure,
	domain.VarSeaLevelPressure,
	domain.VarRelativeHumidity,
	domain.VarWindSpeed,
	domain.VarWindDirection,
	domain.VarGHI,
	domain.VarDNI,
	domain.VarDHI,
	domain.VarThermalRadiation,
	domain.VarCloudCover,
	domain.VarPrecipitation,
}

// WriteCSV writes any dataset as plain CSV: calendar columns followed by
// every canonical variable present in the data. Missing values are empty.
func WriteCSV(w io.Writer, ds domain.Dataset) error {
	var cols []string
	for _, c := range csvColumns {
		if ds.HasVariable(c) {
			cols = append(cols, c)
		}
	}

	cw := csv.NewWriter(w)
	header := append([]string{"Year", "Month", "Day", "Hour", "Minute"}, cols...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range ds {
		row := []string{
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Month),
			strconv.Itoa(r.Day),
			strconv.Itoa(r.Hour),
			strconv.Itoa(r.Minute),
		}
		for _, c := range cols {
			if v, ok := r.Value(c); ok {
				row = append(row, formatValue(v))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
