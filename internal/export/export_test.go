package export_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/justinfmccarty/weather-file-builder/internal/domain"
	"github.com/justinfmccarty/weather-file-builder/internal/export"
	"github.com/justinfmccarty/weather-file-builder/internal/tmy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freezeClock(t *testing.T, year int) {
	t.Helper()
	export.SetClock(clockwork.NewFakeClockAt(time.Date(year, time.March, 10, 8, 0, 0, 0, time.UTC)))
	t.Cleanup(func() {
		export.SetClock(nil)
	})
}

func testResult() tmy.Result {
	var sel tmy.Selection
	for i := range sel {
		sel[i] = 2019
	}
	sel[0] = 2020

	return tmy.Result{
		Selection: sel,
		Constructed: domain.Dataset{
			{Year: 2020, Month: 1, Day: 1, Hour: 0, Values: domain.Values{
				domain.VarTemperature: 5.5,
				domain.VarPressure:    1013.25,
			}},
			{Year: 2020, Month: 1, Day: 1, Hour: 1, Values: domain.Values{
				domain.VarPressure: 1000,
			}},
		},
	}
}

func TestWriteTMY(t *testing.T) {
	freezeClock(t, 2024)

	var buf bytes.Buffer
	require.NoError(t, export.WriteTMY(&buf, testResult(), 52.52, 13.41, 34.0))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 20)

	assert.Equal(t, "Latitude (decimal degrees): 52.52", lines[0])
	assert.Equal(t, "Longitude (decimal degrees): 13.41", lines[1])
	assert.Equal(t, "Elevation (m): 34", lines[2])
	assert.Equal(t, "Irradiance Time Offset (h): 0.500", lines[3])

	// Selection table: January from 2020, the rest from 2019.
	assert.Equal(t, "month,year", lines[4])
	assert.Equal(t, "1,2020", lines[5])
	assert.Equal(t, "2,2019", lines[6])
	assert.Equal(t, "12,2019", lines[16])

	// Only columns backed by the dataset appear.
	assert.Equal(t, "time(UTC),T2m,SP", lines[17])

	// Timestamps carry the creation year; pressure goes out in Pa; a
	// missing value in an emitted column becomes 0.
	assert.Equal(t, "20240101:0000,5.5,101325", lines[18])
	assert.Equal(t, "20240101:0100,0,100000", lines[19])
}

func TestWriteTMY_EmptyColumnsDropped(t *testing.T) {
	freezeClock(t, 2024)

	res := testResult()
	for _, rec := range res.Constructed {
		assert.NotContains(t, rec.Values, domain.VarGHI)
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteTMY(&buf, res, 52.52, 13.41, 34.0))
	assert.NotContains(t, buf.String(), "G(h)")
}

func TestWriteCSV(t *testing.T) {
	ds := domain.Dataset{
		{Year: 2019, Month: 6, Day: 15, Hour: 12, Values: domain.Values{
			domain.VarTemperature: 21.5,
			domain.VarWindSpeed:   3.2,
		}},
		{Year: 2019, Month: 6, Day: 15, Hour: 13, Values: domain.Values{
			domain.VarTemperature: 22.0,
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, ds))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Year,Month,Day,Hour,Minute,Temperature,Wind Speed", lines[0])
	assert.Equal(t, "2019,6,15,12,0,21.5,3.2", lines[1])
	// Missing values stay empty rather than faking a zero.
	assert.Equal(t, "2019,6,15,13,0,22,", lines[2])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, nil))
	assert.Equal(t, "Year,Month,Day,Hour,Minute\n", buf.String())
}
