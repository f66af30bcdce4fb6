package physics

import (
	"math"
)

type VerticalPhase int

const (
	Grounded VerticalPhase = iota
	Rising
	Falling
)

func (p VerticalPhase) String() string {
	switch p {
	case Grounded:
		return "grounded"
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return "unknown"
	}
}

type JumpConfig struct {
	Launch        float64
	Gravity       float64
	GroundLevel   float64
	GroundEpsilon float64
}

func DefaultJumpConfig() JumpConfig {
	return JumpConfig{
		Launch:        DefaultJumpVelocity,
		Gravity:       DefaultGravity,
		GroundLevel:   DefaultGroundLevel,
		GroundEpsilon: DefaultGroundEpsilon,
	}
}

// Jumper integrates vertical motion. It never consults the collision
// prober, so nothing stops an actor rising into a ceiling.
type Jumper struct {
	cfg JumpConfig
}

func NewJumper(cfg JumpConfig) *Jumper {
	return &Jumper{cfg: cfg}
}

func (j *Jumper) Grounded(pose Pose) bool {
	return !pose.Jumping && math.Abs(pose.Position.Y()-j.cfg.GroundLevel) <= j.cfg.GroundEpsilon
}

func (j *Jumper) Phase(pose Pose) VerticalPhase {
	if j.Grounded(pose) {
		return Grounded
	}
	if pose.VerticalVelocity > 0 {
		return Rising
	}
	return Falling
}

// Step launches on a grounded jump request and otherwise integrates
// gravity, clamping at ground level on landing. dt must already be clamped.
func (j *Jumper) Step(pose Pose, jump bool, dt float64) Pose {
	next := pose
	if j.Grounded(next) {
		if !jump {
			next.VerticalVelocity = 0
			return next
		}
		next.VerticalVelocity = j.cfg.Launch
		next.Jumping = true
	}
	if dt <= 0 {
		return next
	}

	next.VerticalVelocity -= j.cfg.Gravity * dt
	y := next.Position.Y() + next.VerticalVelocity*dt
	if y <= j.cfg.GroundLevel {
		y = j.cfg.GroundLevel
		next.VerticalVelocity = 0
		next.Jumping = false
	}
	next.Position[1] = y
	return next
}
