// Package domain models point-location reanalysis weather data.
//
// # Data Source
//
// Hourly records originate from a gridded climate reanalysis archive (the
// ERA5 family served through a CDS-style retrieval API). The archive is
// queried in two modes:
//
//	Monthly:  one request per (year, month) against the full-catalog single
//	          levels dataset. The request asks for a small bounding box
//	          (±0.05°) around the target point, all days 1–31 and hours
//	          0–23, and a gridded payload. The point value is extracted by
//	          nearest-neighbour lookup against the requested coordinate.
//	Range:    one request for an explicit start/end date against the
//	          timeseries endpoint, which serves a reduced variable catalog
//	          as a zip bundle of per-variable CSV exports sharing a
//	          valid_time key.
//
// # Variable Naming
//
// Requests use the archive's long variable names ("2m_temperature"); payloads
// carry the short physical names ("t2m"). Canonical records use display names
// ("Temperature") shared with the exporters. The catalog in variables.go maps
// between the three and groups long names for convenient selection
// ("temperature", "wind", ...).
//
// # Unit Conventions
//
// The archive serves SI-ish raw units; internal/standardize converts to the
// canonical set before records enter a Dataset:
//
//	Temperature, Dew Point   K  → °C
//	Pressure                 Pa → hPa
//	GHI                      accumulated J/m² → mean W/m² over the hour
//	Precipitation            m  → mm
//	Wind Speed/Direction     derived from the u/v components
//	Relative Humidity        derived from temperature and dew point (Magnus)
//
// # Failure Classification
//
// The archive queues and rate-limits requests. The transport classifies every
// failed request exactly once into [FailRateLimited], [FailTransient], or
// [FailFatal]; retry sites branch on the class and never re-inspect status
// codes or message text.
package domain
