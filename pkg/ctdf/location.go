package ctdf

import "math"

// Location is a WGS84 point. Distances between Locations are planar on raw
// degrees which is good enough for the few kilometres a corridor spans.
type Location struct {
	Latitude  float64 `json:"latitude" groups:"basic" yaml:"latitude"`
	Longitude float64 `json:"longitude" groups:"basic" yaml:"longitude"`
}

func (l Location) Distance(other Location) float64 {
	dx := other.Longitude - l.Longitude
	dy := other.Latitude - l.Latitude

	return math.Sqrt(dx*dx + dy*dy)
}

// ProjectOntoLine returns the parameter (0..1) of the point on segment a-b
// closest to l, along with the distance from l to that point.
// Shameless taken 'inspiration' from https://stackoverflow.com/a/6853926
func (l Location) ProjectOntoLine(a Location, b Location) (float64, float64) {
	A := l.Longitude - a.Longitude
	B := l.Latitude - a.Latitude
	C := b.Longitude - a.Longitude
	D := b.Latitude - a.Latitude

	dot := A*C + B*D
	lenSq := C*C + D*D

	param := 0.0
	if lenSq != 0 {
		param = dot / lenSq
	}

	if param < 0 {
		param = 0
	} else if param > 1 {
		param = 1
	}

	xx := a.Longitude + param*C
	yy := a.Latitude + param*D

	dx := l.Longitude - xx
	dy := l.Latitude - yy

	return param, math.Sqrt(dx*dx + dy*dy)
}
