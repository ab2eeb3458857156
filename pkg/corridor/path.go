package corridor

import (
	"github.com/travigo/corridor/pkg/ctdf"
)

// Path is an ordered polyline approximating the track, indexed by cumulative
// planar distance.
type Path struct {
	points     []ctdf.Location
	cumulative []float64
}

func NewPath(points []ctdf.Location) *Path {
	path := &Path{
		points:     make([]ctdf.Location, len(points)),
		cumulative: make([]float64, len(points)),
	}
	copy(path.points, points)

	for i := 1; i < len(path.points); i++ {
		path.cumulative[i] = path.cumulative[i-1] + path.points[i-1].Distance(path.points[i])
	}

	return path
}

func (p *Path) Points() []ctdf.Location {
	return p.points
}

func (p *Path) CumulativeDistances() []float64 {
	return p.cumulative
}

func (p *Path) TotalLength() float64 {
	if len(p.cumulative) == 0 {
		return 0
	}
	return p.cumulative[len(p.cumulative)-1]
}

// Interpolate returns the point at fraction t of the total length. t is
// clamped to [0,1] and a degenerate path returns its first point.
func (p *Path) Interpolate(t float64) ctdf.Location {
	if len(p.points) == 0 {
		return ctdf.Location{}
	}

	total := p.TotalLength()
	if total == 0 {
		return p.points[0]
	}

	t = clamp(t)
	target := t * total

	for i := 1; i < len(p.points); i++ {
		if p.cumulative[i] < target {
			continue
		}

		segment := p.cumulative[i] - p.cumulative[i-1]
		if segment == 0 {
			return p.points[i]
		}

		frac := (target - p.cumulative[i-1]) / segment
		a := p.points[i-1]
		b := p.points[i]

		return ctdf.Location{
			Latitude:  a.Latitude + (b.Latitude-a.Latitude)*frac,
			Longitude: a.Longitude + (b.Longitude-a.Longitude)*frac,
		}
	}

	return p.points[len(p.points)-1]
}

// Project returns the normalized position of the point on the path nearest
// to loc.
func (p *Path) Project(loc ctdf.Location) float64 {
	segment, param := p.nearestSegment(loc)
	if segment < 0 {
		return 0
	}

	total := p.TotalLength()
	if total == 0 {
		return 0
	}

	segmentLength := p.cumulative[segment+1] - p.cumulative[segment]

	return clamp((p.cumulative[segment] + param*segmentLength) / total)
}

// nearestSegment returns the index of the segment closest to loc along with
// the projection parameter on it, or -1 when the path has no segments.
func (p *Path) nearestSegment(loc ctdf.Location) (int, float64) {
	best := -1
	bestParam := 0.0
	bestDistance := 0.0

	for i := 0; i+1 < len(p.points); i++ {
		param, distance := loc.ProjectOntoLine(p.points[i], p.points[i+1])

		if best == -1 || distance < bestDistance {
			best = i
			bestParam = param
			bestDistance = distance
		}
	}

	return best, bestParam
}

func clamp(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
