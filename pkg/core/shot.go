// pkg/core/shot.go
package core

// ShotInfo is the result of a completed targeting computation.
// Values are never mutated after creation; a new computation yields a new ShotInfo.
type ShotInfo struct {
	Origin                 GeoPoint `json:"origin"`
	Target                 GeoPoint `json:"target"`
	DistanceMeters         float64  `json:"distanceMeters"`
	DispersionRadiusMeters float64  `json:"dispersionRadiusMeters"`
	HalfRadiusMeters       float64  `json:"halfRadiusMeters"`
}

// ShotSummary is the rounded, display-ready view of a ShotInfo.
type ShotSummary struct {
	DistanceMeters int `json:"distance"`
	SpreadMeters   int `json:"spread"`
}

// Summary truncates distance and spread to whole meters for display.
func (s ShotInfo) Summary() ShotSummary {
	return ShotSummary{
		DistanceMeters: int(s.DistanceMeters),
		SpreadMeters:   int(s.DispersionRadiusMeters),
	}
}
