package domain

import "strings"

// StationMetadata describes one observatory for output-header purposes:
// geographic and magnetic coordinates, L-shell, display name, and whether
// the station has been deactivated. Supplied by the external
// coordinate-extraction collaborator as a CSV table.
type StationMetadata struct {
	Code        string // canonical lowercase
	Name        string
	GeoLon      float64
	GeoLat      float64
	MagLon      float64
	MagLat      float64
	LShell      float64
	Deactivated bool
}

// StationTable maps canonical station codes to their metadata.
type StationTable map[string]StationMetadata

// Lookup returns the metadata for a station, falling back to a zeroed
// record (coordinates 0, name = uppercased code) when the station is not
// listed. Missing metadata degrades the output header, it never fails a
// conversion.
func (t StationTable) Lookup(code string) StationMetadata {
	canonical := CanonicalStationCode(code)
	if m, ok := t[canonical]; ok {
		return m
	}
	return StationMetadata{
		Code: canonical,
		Name: strings.ToUpper(canonical),
	}
}
