package physics

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

type InputState struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
	Jump     bool
	// Yaw is the look heading in radians. Only direct-offset movement
	// reads it.
	Yaw float64
}

// Pose is the actor state the integrators advance once per frame.
type Pose struct {
	Position mgl64.Vec3
	// Heading is a yaw about +Y in radians; zero faces -Z.
	Heading          float64
	Velocity         float64
	VerticalVelocity float64
	Jumping          bool
}

type MovementMode int

const (
	// ModeVelocity is vehicle-style: accelerate, coast, steer while moving.
	ModeVelocity MovementMode = iota
	// ModeDirect is on-foot style: fixed speed offsets, strafing, no inertia.
	ModeDirect
)

func (m MovementMode) String() string {
	switch m {
	case ModeVelocity:
		return "velocity"
	case ModeDirect:
		return "direct"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMovementMode(s string) (MovementMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "velocity", "vehicle":
		return ModeVelocity, nil
	case "direct", "walk", "on-foot":
		return ModeDirect, nil
	default:
		return 0, fmt.Errorf("unknown movement mode %q", s)
	}
}

type MotionConfig struct {
	Mode MovementMode
	// Acceleration and Deceleration are applied once per step, independent
	// of dt.
	MaxSpeed     float64
	Acceleration float64
	Deceleration float64
	TurnStep     float64
	// ReverseSteer flips the turn direction while reversing.
	ReverseSteer bool
	WalkSpeed    float64
	// MaxFrameDelta caps dt; zero disables the cap.
	MaxFrameDelta float64
}

func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		Mode:          ModeVelocity,
		MaxSpeed:      DefaultMaxSpeed,
		Acceleration:  DefaultAcceleration,
		Deceleration:  DefaultDeceleration,
		TurnStep:      DefaultTurnStep,
		ReverseSteer:  true,
		WalkSpeed:     DefaultWalkSpeed,
		MaxFrameDelta: DefaultMaxFrameDelta,
	}
}

// Collider decides whether a candidate position is blocked.
type Collider interface {
	Probe(candidate mgl64.Vec3) bool
}

// Integrator computes the next pose from the current one. Collision is a
// discrete check of the candidate position only, so a large enough
// dt*velocity can still step over a thin obstacle.
type Integrator struct {
	cfg      MotionConfig
	collider Collider
}

func NewIntegrator(cfg MotionConfig, collider Collider) *Integrator {
	return &Integrator{cfg: cfg, collider: collider}
}

func (in *Integrator) Config() MotionConfig {
	return in.cfg
}

// Step returns the next pose and whether the candidate position was
// rejected. A rejected step keeps the previous position exactly but still
// applies the heading change.
func (in *Integrator) Step(pose Pose, input InputState, dt float64) (Pose, bool) {
	dt = in.ClampDelta(dt)

	next := pose
	var candidate mgl64.Vec3
	switch in.cfg.Mode {
	case ModeDirect:
		candidate, next.Heading = in.directCandidate(pose, input, dt)
		next.Velocity = 0
	default:
		next.Velocity = in.nextVelocity(pose.Velocity, input)
		candidate = pose.Position.Add(Facing(pose.Heading).Mul(next.Velocity * dt))
		next.Heading = in.nextHeading(pose.Heading, next.Velocity, input)
	}

	if candidate == pose.Position {
		return next, false
	}
	if in.collider != nil && in.collider.Probe(candidate) {
		next.Position = pose.Position
		return next, true
	}
	next.Position = candidate
	return next, false
}

// ClampDelta maps NaN and negative deltas to zero and caps the rest.
func (in *Integrator) ClampDelta(dt float64) float64 {
	if math.IsNaN(dt) || dt < 0 {
		return 0
	}
	if in.cfg.MaxFrameDelta > 0 && dt > in.cfg.MaxFrameDelta {
		return in.cfg.MaxFrameDelta
	}
	return dt
}

func (in *Integrator) nextVelocity(v float64, input InputState) float64 {
	maxSpeed := math.Abs(in.cfg.MaxSpeed)
	switch {
	case input.Forward:
		v = math.Min(v+in.cfg.Acceleration, maxSpeed)
		if maxSpeed-v < VelocitySnapTolerance {
			v = maxSpeed
		}
	case input.Backward:
		v = math.Max(v-in.cfg.Acceleration, -maxSpeed)
		if v+maxSpeed < VelocitySnapTolerance {
			v = -maxSpeed
		}
	case v > 0:
		v = math.Max(v-in.cfg.Deceleration, 0)
	case v < 0:
		v = math.Min(v+in.cfg.Deceleration, 0)
	}
	if math.Abs(v) < VelocitySnapTolerance {
		v = 0
	}
	return v
}

func (in *Integrator) nextHeading(heading, velocity float64, input InputState) float64 {
	if velocity == 0 || input.Left == input.Right {
		return heading
	}
	step := in.cfg.TurnStep
	if input.Right {
		step = -step
	}
	if in.cfg.ReverseSteer && velocity < 0 {
		step = -step
	}
	return heading + step
}

func (in *Integrator) directCandidate(pose Pose, input InputState, dt float64) (mgl64.Vec3, float64) {
	heading := input.Yaw
	var forward, strafe float64
	if input.Forward {
		forward++
	}
	if input.Backward {
		forward--
	}
	if input.Right {
		strafe++
	}
	if input.Left {
		strafe--
	}

	dist := in.cfg.WalkSpeed * dt
	offset := Facing(heading).Mul(forward * dist).Add(RightOf(heading).Mul(strafe * dist))
	return pose.Position.Add(offset), heading
}

// Facing is the unit direction an actor with the given heading moves in.
func Facing(heading float64) mgl64.Vec3 {
	return mgl64.Vec3{-math.Sin(heading), 0, -math.Cos(heading)}
}

// RightOf is the unit strafe direction to the actor's right.
func RightOf(heading float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Cos(heading), 0, -math.Sin(heading)}
}
