package models

import "fmt"

type LocationStatus int

const (
	LocationSuccess LocationStatus = iota
	LocationServicesDisabled
	LocationPermissionDenied
	LocationTimeout
	LocationUnavailable
)

var locationStatusNames = [...]string{"success", "services_disabled", "permission_denied", "timeout", "unavailable"}

func (s LocationStatus) String() string {
	if s >= 0 && int(s) < len(locationStatusNames) {
		return locationStatusNames[s]
	}
	return fmt.Sprintf("LocationStatus(%d)", int(s))
}

func (s LocationStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Format renders "lat, lon" with six decimals.
func (c Coordinates) Format() string {
	return fmt.Sprintf("%.6f, %.6f", c.Latitude, c.Longitude)
}

// LocationResult is the outcome of one acquisition attempt. Coords is
// only meaningful when Status is LocationSuccess.
type LocationResult struct {
	Status LocationStatus `json:"status"`
	Coords Coordinates    `json:"coords"`
}

func (r LocationResult) OK() bool { return r.Status == LocationSuccess }
