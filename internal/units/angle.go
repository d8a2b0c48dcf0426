// Package units provides shared constants and validation for pose display units
package units

import "math"

// Angle unit constants
const (
	Radians = "radians"
	Degrees = "degrees"
)

// ValidAngleUnits contains all valid angle unit values
var ValidAngleUnits = []string{Radians, Degrees}

// IsValidAngleUnit checks if the given unit is in the list of valid angle units
func IsValidAngleUnit(unit string) bool {
	for _, validUnit := range ValidAngleUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidAngleUnitsString returns a comma-separated string of valid angle units for error messages
func GetValidAngleUnitsString() string {
	return "radians, degrees"
}

// ConvertAngle converts an angle from radians to the target units
// The geometry package works in radians throughout
func ConvertAngle(angleRad float64, targetUnits string) float64 {
	switch targetUnits {
	case Radians:
		return angleRad
	case Degrees:
		return angleRad * 180 / math.Pi
	default:
		return angleRad
	}
}
