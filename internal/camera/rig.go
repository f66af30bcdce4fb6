package camera

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/citydrive/internal/input"
	"github.com/Versifine/citydrive/internal/physics"
)

type Mode int

const (
	// ModeRigid chases the actor at a heading-rotated offset.
	ModeRigid Mode = iota
	// ModeFree is moved by the pointer and only keeps aiming at the actor.
	ModeFree
)

func (m Mode) String() string {
	switch m {
	case ModeRigid:
		return "rigid"
	case ModeFree:
		return "free"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rigid", "chase":
		return ModeRigid, nil
	case "free":
		return ModeFree, nil
	default:
		return 0, fmt.Errorf("unknown camera mode %q", s)
	}
}

type Config struct {
	Mode   Mode
	Offset mgl64.Vec3
	// TurnLean replaces the offset's X while a turn key is held.
	TurnLean    float64
	Sensitivity float64
}

func DefaultConfig() Config {
	return Config{
		Mode:        ModeRigid,
		Offset:      mgl64.Vec3{0, 2, 5},
		TurnLean:    1,
		Sensitivity: 0.002,
	}
}

type State struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
	Mode     Mode
}

var worldUp = mgl64.Vec3{0, 1, 0}

// View is the right-handed look-at matrix for the current pose.
func (s State) View() mgl64.Mat4 {
	return mgl64.LookAtV(s.Position, s.Target, worldUp)
}

// Forward is the unit viewing direction, or zero when the camera sits on
// its target.
func (s State) Forward() mgl64.Vec3 {
	d := s.Target.Sub(s.Position)
	if d.Len() == 0 {
		return mgl64.Vec3{}
	}
	return d.Normalize()
}

// Rig derives the camera from the actor pose. It is not safe for concurrent
// use; the frame driver owns it.
type Rig struct {
	cfg   Config
	state State
}

func NewRig(cfg Config) *Rig {
	return &Rig{
		cfg: cfg,
		state: State{
			Position: cfg.Offset,
			Mode:     cfg.Mode,
		},
	}
}

func (r *Rig) State() State {
	return r.state
}

func (r *Rig) Mode() Mode {
	return r.state.Mode
}

func (r *Rig) Toggle() Mode {
	if r.state.Mode == ModeFree {
		r.state.Mode = ModeRigid
	} else {
		r.state.Mode = ModeFree
	}
	return r.state.Mode
}

func (r *Rig) Update(pose physics.Pose, in physics.InputState, pointer input.PointerDelta) State {
	switch r.state.Mode {
	case ModeFree:
		r.state.Position[0] -= pointer.DX * r.cfg.Sensitivity
		r.state.Position[1] += pointer.DY * r.cfg.Sensitivity
	default:
		r.state.Position = pose.Position.Add(r.chaseOffset(pose.Heading, in))
	}
	r.state.Target = pose.Position
	return r.state
}

func (r *Rig) chaseOffset(heading float64, in physics.InputState) mgl64.Vec3 {
	offset := r.cfg.Offset
	if in.Left {
		offset[0] = r.cfg.TurnLean
	}
	if in.Right {
		offset[0] = -r.cfg.TurnLean
	}
	return mgl64.Rotate3DY(heading).Mul3x1(offset)
}
