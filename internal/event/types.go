package event

import "github.com/go-gl/mathgl/mgl64"

const (
	EventAssetLoaded     = "asset.loaded"
	EventAssetFailed     = "asset.failed"
	EventSessionStarted  = "session.started"
	EventPointerLocked   = "pointer.locked"
	EventPointerUnlocked = "pointer.unlocked"
	EventCameraMode      = "camera.mode"
	EventCollision       = "actor.collision"
)

type AssetEvent struct {
	Name      string
	Kind      string
	Obstacles int
	Err       error
}

type PointerEvent struct {
	Frame uint64
}

type CameraModeEvent struct {
	Frame uint64
	Mode  string
}

type CollisionEvent struct {
	Frame     uint64
	Position  mgl64.Vec3
	Candidate mgl64.Vec3
	Direction string
	Distance  float64
}
