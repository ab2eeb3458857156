package ctdf

type ServiceType string

const (
	ServiceTypePassenger ServiceType = "passenger"
	ServiceTypeFreight   ServiceType = "freight"
)

type Direction string

const (
	DirectionTowardA Direction = "toward-a"
	DirectionTowardB Direction = "toward-b"
)

// StationRef identifies one of the two corridor stations.
type StationRef string

const (
	StationA StationRef = "a"
	StationB StationRef = "b"
)

func (d Direction) Opposite() Direction {
	if d == DirectionTowardA {
		return DirectionTowardB
	}
	return DirectionTowardA
}

// FirstStation is the corridor station a movement in this direction meets first.
func (d Direction) FirstStation() StationRef {
	if d == DirectionTowardA {
		return StationB
	}
	return StationA
}

func (d Direction) LastStation() StationRef {
	if d == DirectionTowardA {
		return StationA
	}
	return StationB
}
