package stream

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/citydrive/internal/session"
)

const (
	MessageKey     = "key"
	MessagePointer = "pointer"
	MessageLock    = "lock"
	MessageUnlock  = "unlock"
	MessageFrame   = "frame"
	MessageError   = "error"
)

// ClientMessage is anything a client sends; fields unused by a type are
// ignored.
type ClientMessage struct {
	Type string  `json:"type"`
	Code string  `json:"code,omitempty"`
	Down bool    `json:"down,omitempty"`
	DX   float64 `json:"dx,omitempty"`
	DY   float64 `json:"dy,omitempty"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type FrameMessage struct {
	Type             string        `json:"type"`
	Frame            uint64        `json:"frame"`
	Started          bool          `json:"started"`
	PointerLocked    bool          `json:"pointerLocked"`
	ActorLoaded      bool          `json:"actorLoaded"`
	Scale            float64       `json:"scale"`
	Position         [3]float64    `json:"position"`
	Heading          float64       `json:"heading"`
	Velocity         float64       `json:"velocity"`
	VerticalVelocity float64       `json:"verticalVelocity"`
	Phase            string        `json:"phase"`
	Camera           CameraMessage `json:"camera"`
	Obstacles        int           `json:"obstacles"`
	Blocked          *BlockedHit   `json:"blocked,omitempty"`
}

type CameraMessage struct {
	Mode     string     `json:"mode"`
	Position [3]float64 `json:"position"`
	Target   [3]float64 `json:"target"`
}

type BlockedHit struct {
	Direction string  `json:"direction"`
	Distance  float64 `json:"distance"`
}

func newFrameMessage(snap session.Snapshot) FrameMessage {
	msg := FrameMessage{
		Type:             MessageFrame,
		Frame:            snap.Frame,
		Started:          snap.Started,
		PointerLocked:    snap.PointerLocked,
		ActorLoaded:      snap.ActorLoaded,
		Scale:            snap.ActorScale,
		Position:         vec(snap.Pose.Position),
		Heading:          snap.Pose.Heading,
		Velocity:         snap.Pose.Velocity,
		VerticalVelocity: snap.Pose.VerticalVelocity,
		Phase:            snap.Phase.String(),
		Camera: CameraMessage{
			Mode:     snap.Camera.Mode.String(),
			Position: vec(snap.Camera.Position),
			Target:   vec(snap.Camera.Target),
		},
		Obstacles: snap.Obstacles,
	}
	if snap.Collided {
		msg.Blocked = &BlockedHit{
			Direction: snap.Hit.Direction.String(),
			Distance:  snap.Hit.Distance,
		}
	}
	return msg
}

func vec(v mgl64.Vec3) [3]float64 {
	return [3]float64{v[0], v[1], v[2]}
}
