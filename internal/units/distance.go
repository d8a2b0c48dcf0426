package units

// Distance unit constants
const (
	Meters = "meters"
	Feet   = "feet"
	Inches = "inches"
)

// ValidDistanceUnits contains all valid distance unit values
var ValidDistanceUnits = []string{Meters, Feet, Inches}

// IsValidDistanceUnit checks if the given unit is in the list of valid distance units
func IsValidDistanceUnit(unit string) bool {
	for _, validUnit := range ValidDistanceUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidDistanceUnitsString returns a comma-separated string of valid distance units for error messages
func GetValidDistanceUnitsString() string {
	return "meters, feet, inches"
}

// ConvertDistance converts a distance from meters to the target units
// The geometry package and the trace database store distances in meters
func ConvertDistance(distanceM float64, targetUnits string) float64 {
	switch targetUnits {
	case Meters:
		return distanceM
	case Feet:
		return distanceM / 0.3048 // 1 ft = 0.3048 m exactly
	case Inches:
		return distanceM / 0.0254 // 1 in = 0.0254 m exactly
	default:
		return distanceM
	}
}
