package prediction

// Presentation bands for a participation probability.
const (
	BandLow         = "low"
	BandModerate    = "moderate"
	BandHigh        = "high"
	BandUnavailable = "unavailable"
)

func Band(probability *float64) string {
	switch {
	case probability == nil:
		return BandUnavailable
	case *probability < 0.3:
		return BandLow
	case *probability < 0.7:
		return BandModerate
	default:
		return BandHigh
	}
}
