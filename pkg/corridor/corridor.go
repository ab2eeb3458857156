package corridor

import (
	"fmt"
	"time"

	"github.com/travigo/corridor/pkg/ctdf"

	_ "time/tzdata"
)

const vertexTolerance = 1e-12

type Station struct {
	Ref       ctdf.StationRef   `json:"ref" groups:"basic"`
	Name      string            `json:"name" groups:"basic"`
	StopIDs   []string          `json:"stopIds" groups:"basic"`
	Platforms map[string]string `json:"platforms,omitempty" groups:"detailed"`
	Anchor    ctdf.Location     `json:"anchor" groups:"basic"`
	Position  float64           `json:"position" groups:"basic"`
}

// Corridor is the immutable geometry and identity of the tracked segment.
type Corridor struct {
	Config *Config

	Path     *Path
	Location *time.Location

	stations    map[ctdf.StationRef]*Station
	stopStation map[string]ctdf.StationRef
}

func NewCorridor(config *Config) (*Corridor, error) {
	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load corridor timezone %s: %w", config.Timezone, err)
	}

	corridor := &Corridor{
		Config:      config,
		Location:    location,
		stations:    map[ctdf.StationRef]*Station{},
		stopStation: map[string]ctdf.StationRef{},
	}

	points := make([]ctdf.Location, len(config.Path))
	copy(points, config.Path)
	if len(points) < 2 {
		points = []ctdf.Location{config.StationA.Anchor, config.StationB.Anchor}
	}

	points = insertVertex(points, config.StationA.Anchor)
	points = insertVertex(points, config.StationB.Anchor)
	indexA := vertexIndex(points, config.StationA.Anchor)
	indexB := vertexIndex(points, config.StationB.Anchor)

	corridor.Path = NewPath(points)

	for ref, stationConfig := range map[ctdf.StationRef]StationConfig{ctdf.StationA: config.StationA, ctdf.StationB: config.StationB} {
		station := &Station{
			Ref:       ref,
			Name:      stationConfig.Name,
			StopIDs:   stationConfig.StopIDs,
			Platforms: stationConfig.Platforms,
			Anchor:    stationConfig.Anchor,
		}

		index := indexA
		if ref == ctdf.StationB {
			index = indexB
		}
		if total := corridor.Path.TotalLength(); total > 0 {
			station.Position = corridor.Path.cumulative[index] / total
		}

		corridor.stations[ref] = station
		for _, stopID := range stationConfig.StopIDs {
			corridor.stopStation[stopID] = ref
		}
	}

	return corridor, nil
}

// insertVertex makes sure anchor is a vertex of points, splitting the nearest
// segment when it is not.
func insertVertex(points []ctdf.Location, anchor ctdf.Location) []ctdf.Location {
	if index := vertexIndex(points, anchor); index >= 0 {
		points[index] = anchor
		return points
	}

	path := NewPath(points)
	segment, param := path.nearestSegment(anchor)

	insertAt := segment + 1
	if param <= 0 && segment == 0 {
		insertAt = 0
	} else if param >= 1 && segment == len(points)-2 {
		insertAt = len(points)
	}

	points = append(points, ctdf.Location{})
	copy(points[insertAt+1:], points[insertAt:])
	points[insertAt] = anchor

	return points
}

func vertexIndex(points []ctdf.Location, anchor ctdf.Location) int {
	for i, point := range points {
		if point.Distance(anchor) < vertexTolerance {
			return i
		}
	}
	return -1
}

func (c *Corridor) Station(ref ctdf.StationRef) *Station {
	return c.stations[ref]
}

// PositionOf returns the normalized position of a corridor station.
func (c *Corridor) PositionOf(ref ctdf.StationRef) float64 {
	if station, ok := c.stations[ref]; ok {
		return station.Position
	}
	return 0
}

func (c *Corridor) StationForStop(stopID string) (ctdf.StationRef, bool) {
	ref, ok := c.stopStation[stopID]
	return ref, ok
}

func (c *Corridor) IsCorridorStop(stopID string) bool {
	_, ok := c.stopStation[stopID]
	return ok
}

func (c *Corridor) CorridorStopIDs() []string {
	stopIDs := []string{}
	stopIDs = append(stopIDs, c.Config.StationA.StopIDs...)
	stopIDs = append(stopIDs, c.Config.StationB.StopIDs...)

	return stopIDs
}

func (c *Corridor) Platform(stopID string) string {
	ref, ok := c.stopStation[stopID]
	if !ok {
		return ""
	}
	return c.stations[ref].Platforms[stopID]
}

// RunningTime is the typical passenger running time between the two stations.
func (c *Corridor) RunningTime() time.Duration {
	return time.Duration(c.Config.RunningTimeMinutes) * time.Minute
}

func (c *Corridor) FreightTraverseTime() time.Duration {
	return time.Duration(c.Config.FreightTraverseMinutes) * time.Minute
}

// DirectionFromStations infers the direction from the station met first.
func DirectionFromStations(first ctdf.StationRef) ctdf.Direction {
	if first == ctdf.StationA {
		return ctdf.DirectionTowardB
	}
	return ctdf.DirectionTowardA
}

// Midnight returns local midnight of the day containing t in the corridor
// timezone.
func (c *Corridor) Midnight(t time.Time) time.Time {
	local := t.In(c.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location)
}

// Endpoint is the name of the terminus a movement heading in direction runs to
// when nothing better is known.
func (c *Corridor) Endpoint(direction ctdf.Direction) string {
	if name, ok := c.Config.Endpoints[direction]; ok {
		return name
	}
	return c.Station(direction.LastStation()).Name
}
