package domain

import (
	"fmt"
	"strings"
)

// Display names used as Values keys and exporter columns.
const (
	VarTemperature      = "Temperature"
	VarDewPoint         = "Dew Point"
	VarSkinTemperature  = "Skin Temperature"
	VarPressure         = "Pressure"
	VarSeaLevelPressure = "Sea Level Pressure"
	VarRelativeHumidity = "Relative Humidity"
	VarWindSpeed        = "Wind Speed"
	VarWindDirection    = "Wind Direction"
	VarGHI              = "GHI"
	VarDNI              = "DNI"
	VarDHI              = "DHI"
	VarThermalRadiation = "Thermal Radiation"
	VarCloudCover       = "Cloud Cover"
	VarPrecipitation    = "Precipitation"
)

// Archive long names accepted in requests.
const (
	ArchiveTemperature      = "2m_temperature"
	ArchiveDewPoint         = "2m_dewpoint_temperature"
	ArchiveSkinTemperature  = "skin_temperature"
	ArchivePressure         = "surface_pressure"
	ArchiveSeaLevelPressure = "mean_sea_level_pressure"
	ArchiveWindU            = "10m_u_component_of_wind"
	ArchiveWindV            = "10m_v_component_of_wind"
	ArchiveSolar            = "surface_solar_radiation_downwards"
	ArchiveThermal          = "surface_thermal_radiation_downwards"
	ArchiveCloudCover       = "total_cloud_cover"
	ArchivePrecipitation    = "total_precipitation"
)

// Group expansion order matters: expanded request lists are deterministic.
var groupOrder = []string{"temperature", "pressure", "wind", "solar", "precipitation"}

var variableGroups = map[string][]string{
	"temperature":   {ArchiveTemperature, ArchiveDewPoint, ArchiveSkinTemperature},
	"pressure":      {ArchivePressure, ArchiveSeaLevelPressure},
	"wind":          {ArchiveWindU, ArchiveWindV},
	"solar":         {ArchiveSolar, ArchiveThermal},
	"precipitation": {ArchivePrecipitation},
}

// RangeVariables is the reduced catalog served by the timeseries endpoint.
var RangeVariables = []string{
	ArchiveDewPoint,
	ArchiveSeaLevelPressure,
	ArchiveSkinTemperature,
	ArchivePressure,
	ArchiveSolar,
	ArchiveThermal,
	ArchiveTemperature,
	ArchivePrecipitation,
	ArchiveWindU,
	ArchiveWindV,
}

// AllVariables returns every archive variable name in catalog order.
func AllVariables() []string {
	var out []string
	for _, g := range groupOrder {
		out = append(out, variableGroups[g]...)
	}
	return out
}

// ResolveVariables expands group names and validates archive names, returning
// the archive long names for a request. Duplicates are dropped, order is
// preserved. A nil list or the group "all" selects the full catalog.
func ResolveVariables(names []string) ([]string, error) {
	if len(names) == 0 {
		return AllVariables(), nil
	}
	known := make(map[string]bool)
	for _, v := range AllVariables() {
		known[v] = true
	}

	var resolved []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		switch {
		case name == "all":
			return AllVariables(), nil
		case variableGroups[name] != nil:
			resolved = append(resolved, variableGroups[name]...)
		case known[name]:
			resolved = append(resolved, name)
		default:
			return nil, &ValidationError{Msg: fmt.Sprintf("unknown variable or group: %q", name)}
		}
	}

	seen := make(map[string]bool, len(resolved))
	out := resolved[:0]
	for _, v := range resolved {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}
