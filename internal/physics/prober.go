package physics

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Direction names one of the world-axis probe rays. Forward is +Z and
// right is +X, matching the asset coordinate frame, not the actor heading.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
	DirForward
	DirBackward
)

var directionVectors = [...]mgl64.Vec3{
	DirUp:       {0, 1, 0},
	DirDown:     {0, -1, 0},
	DirLeft:     {-1, 0, 0},
	DirRight:    {1, 0, 0},
	DirForward:  {0, 0, 1},
	DirBackward: {0, 0, -1},
}

var directionNames = [...]string{
	DirUp:       "up",
	DirDown:     "down",
	DirLeft:     "left",
	DirRight:    "right",
	DirForward:  "forward",
	DirBackward: "backward",
}

// DefaultDirections leaves out down so the ground plane never blocks.
var DefaultDirections = []Direction{DirUp, DirRight, DirLeft, DirForward, DirBackward}

func (d Direction) Vector() mgl64.Vec3 {
	if d < 0 || int(d) >= len(directionVectors) {
		return mgl64.Vec3{}
	}
	return directionVectors[d]
}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

func ParseDirection(name string) (Direction, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range directionNames {
		if n == key {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown probe direction %q", name)
}

// ObstacleSource yields the registered shapes in registration order.
type ObstacleSource interface {
	Shapes() []Shape
}

type Hit struct {
	Direction Direction
	Distance  float64
	Shape     Shape
}

// Prober approximates actor-vs-scene collision with a handful of short
// axis-aligned rays cast from the candidate position. It does not use the
// actor's geometry and gives no penetration depth.
type Prober struct {
	Threshold  float64
	Directions []Direction
	Source     ObstacleSource
}

func NewProber(source ObstacleSource) *Prober {
	return &Prober{
		Threshold:  DefaultCollisionThreshold,
		Directions: append([]Direction(nil), DefaultDirections...),
		Source:     source,
	}
}

func (p *Prober) Probe(candidate mgl64.Vec3) bool {
	_, ok := p.Detect(candidate)
	return ok
}

// Detect returns the first ray, in direction order, whose nearest hit lies
// strictly closer than the threshold.
func (p *Prober) Detect(candidate mgl64.Vec3) (Hit, bool) {
	if p == nil || p.Source == nil {
		return Hit{}, false
	}
	shapes := p.Source.Shapes()
	if len(shapes) == 0 {
		return Hit{}, false
	}

	for _, dir := range p.Directions {
		hit, ok := nearestHit(candidate, dir, shapes)
		if ok && hit.Distance < p.Threshold {
			return hit, true
		}
	}
	return Hit{}, false
}

func nearestHit(origin mgl64.Vec3, dir Direction, shapes []Shape) (Hit, bool) {
	ray := dir.Vector()
	best := Hit{Direction: dir, Distance: math.Inf(1)}
	found := false
	for _, shape := range shapes {
		if shape == nil {
			continue
		}
		d, ok := shape.IntersectRay(origin, ray)
		if !ok || d >= best.Distance {
			continue
		}
		best.Distance = d
		best.Shape = shape
		found = true
	}
	return best, found
}
