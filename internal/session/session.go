package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/citydrive/internal/camera"
	"github.com/Versifine/citydrive/internal/event"
	"github.com/Versifine/citydrive/internal/input"
	"github.com/Versifine/citydrive/internal/physics"
	"github.com/Versifine/citydrive/internal/scene"
)

var ErrActorNotLoaded = errors.New("actor not loaded")

type Options struct {
	Motion     physics.MotionConfig
	Jump       *physics.JumpConfig // nil disables vertical motion
	Threshold  float64 // <= 0 keeps physics.DefaultCollisionThreshold
	Directions []physics.Direction
	Camera     camera.Config
	Bus        *event.Bus
	Loader     *scene.Loader
	// ActorAsset names the asset expected to carry the actor transform.
	// Empty accepts the first asset that has one.
	ActorAsset string
}

// Snapshot is the read-only view of one frame handed to render surfaces.
type Snapshot struct {
	Frame         uint64
	Started       bool
	PointerLocked bool
	ActorLoaded   bool
	ActorScale    float64 // uniform render scale from the actor asset
	Pose          physics.Pose
	Phase         physics.VerticalPhase
	Camera        camera.State
	Input         input.State
	Obstacles     int
	Collided      bool
	Hit           physics.Hit
}

// Active reports whether the frame was allowed to move the actor.
func (s Snapshot) Active() bool {
	return s.Started && s.PointerLocked && s.ActorLoaded
}

// Session owns the simulation state. Tick runs on the frame goroutine;
// Teleport, Probe and Last may be called from anywhere.
type Session struct {
	mu sync.Mutex

	bus        *event.Bus
	loader     *scene.Loader
	actorAsset string

	obstacles  *scene.ObstacleSet
	prober     *physics.Prober
	collider   *recordingCollider
	integrator *physics.Integrator
	jumper     *physics.Jumper
	rig        *camera.Rig

	frame         uint64
	started       bool
	pointerLocked bool
	actorLoaded   bool
	pose          physics.Pose
	yaw           float64 // look heading, turned only on active frames
	actorScale    float64
	last          Snapshot
}

func New(opts Options) *Session {
	obstacles := scene.NewObstacleSet()
	prober := physics.NewProber(obstacles)
	if opts.Threshold > 0 {
		prober.Threshold = opts.Threshold
	}
	if opts.Directions != nil {
		prober.Directions = append([]physics.Direction(nil), opts.Directions...)
	}
	collider := &recordingCollider{prober: prober}

	s := &Session{
		bus:        opts.Bus,
		loader:     opts.Loader,
		actorAsset: opts.ActorAsset,
		obstacles:  obstacles,
		prober:     prober,
		collider:   collider,
		integrator: physics.NewIntegrator(opts.Motion, collider),
		rig:        camera.NewRig(opts.Camera),
	}
	if opts.Jump != nil {
		s.jumper = physics.NewJumper(*opts.Jump)
	}
	s.last = s.snapshotLocked(input.State{})
	return s
}

func (s *Session) Obstacles() *scene.ObstacleSet {
	return s.obstacles
}

// Tick advances one frame: pending asset results and triggers are applied
// first, then the actor and camera move if the session is active.
func (s *Session) Tick(frame input.Frame, dt float64) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame++
	s.applyAssetsLocked()
	s.applyTriggersLocked(frame)

	collided := false
	var hit physics.Hit
	if s.started && s.pointerLocked && s.actorLoaded {
		s.yaw += frame.Look
		frame.Input.Yaw = s.yaw
		collided, hit = s.moveLocked(frame, dt)
	}

	in := frame.Input
	in.Yaw = s.yaw
	snap := s.snapshotLocked(in)
	snap.Collided = collided
	snap.Hit = hit
	s.last = snap
	return snap
}

// Last returns the snapshot produced by the most recent Tick.
func (s *Session) Last() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Teleport moves the actor without a collision check and stops it.
func (s *Session) Teleport(pos mgl64.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.actorLoaded {
		return ErrActorNotLoaded
	}
	s.pose.Position = pos
	s.pose.Velocity = 0
	s.pose.VerticalVelocity = 0
	s.pose.Jumping = false
	s.last.Pose = s.pose
	slog.Info("Actor teleported", "position", formatVec(pos))
	return nil
}

// Probe runs the collision prober at an arbitrary point.
func (s *Session) Probe(pos mgl64.Vec3) (physics.Hit, bool) {
	return s.prober.Detect(pos)
}

func (s *Session) moveLocked(frame input.Frame, dt float64) (bool, physics.Hit) {
	dt = s.integrator.ClampDelta(dt)
	prev := s.pose

	s.collider.reset()
	next, collided := s.integrator.Step(s.pose, frame.Input, dt)
	if s.jumper != nil {
		next = s.jumper.Step(next, frame.Input.Jump, dt)
	}
	s.pose = next
	s.rig.Update(s.pose, frame.Input, frame.Pointer)

	if !collided {
		return false, physics.Hit{}
	}
	hit := s.collider.hit
	slog.Debug("Move rejected", "frame", s.frame, "direction", hit.Direction.String(), "distance", hit.Distance)
	s.bus.Publish(event.EventCollision, event.CollisionEvent{
		Frame:     s.frame,
		Position:  prev.Position,
		Candidate: s.collider.candidate,
		Direction: hit.Direction.String(),
		Distance:  hit.Distance,
	})
	return true, hit
}

func (s *Session) applyAssetsLocked() {
	if s.loader == nil {
		return
	}
	for _, res := range s.loader.Drain() {
		s.applyResultLocked(res)
	}
}

func (s *Session) applyResultLocked(res scene.Result) {
	if res.Err == nil && res.Asset == nil {
		res.Err = scene.ErrUnknownAsset
	}
	if res.Err == nil && res.Name == s.actorAsset && res.Asset.Actor == nil {
		res.Err = fmt.Errorf("asset %q: %w", res.Name, scene.ErrNoActor)
	}
	if res.Err != nil {
		slog.Warn("Asset unavailable, continuing without it", "asset", res.Name, "error", res.Err)
		s.bus.Publish(event.EventAssetFailed, event.AssetEvent{Name: res.Name, Err: res.Err})
		return
	}

	asset := res.Asset
	if asset.Actor != nil {
		if s.actorLoaded {
			slog.Warn("Actor already loaded, ignoring asset", "asset", res.Name)
			return
		}
		if s.actorAsset != "" && res.Name != s.actorAsset {
			slog.Warn("Unexpected actor asset, ignoring", "asset", res.Name, "want", s.actorAsset)
			return
		}
		s.pose = asset.Actor.Pose()
		s.yaw = s.pose.Heading
		s.actorScale = asset.Actor.Scale
		s.actorLoaded = true
		slog.Info("Actor loaded", "asset", res.Name, "position", formatVec(s.pose.Position), "heading", s.pose.Heading)
	} else {
		total := s.obstacles.Add(asset.Obstacles...)
		slog.Info("Obstacles loaded", "asset", res.Name, "added", len(asset.Obstacles), "passable", len(asset.Passable), "total", total)
	}

	s.bus.Publish(event.EventAssetLoaded, event.AssetEvent{
		Name:      res.Name,
		Kind:      asset.Kind(),
		Obstacles: len(asset.Obstacles),
	})
}

func (s *Session) applyTriggersLocked(frame input.Frame) {
	switch {
	case frame.LockPointer && !s.pointerLocked:
		s.pointerLocked = true
		if !s.started {
			s.started = true
			slog.Info("Session started", "frame", s.frame)
			s.bus.Publish(event.EventSessionStarted, event.PointerEvent{Frame: s.frame})
		}
		slog.Info("Pointer locked", "frame", s.frame)
		s.bus.Publish(event.EventPointerLocked, event.PointerEvent{Frame: s.frame})
	case frame.UnlockPointer && s.pointerLocked:
		s.pointerLocked = false
		slog.Info("Pointer unlocked", "frame", s.frame)
		s.bus.Publish(event.EventPointerUnlocked, event.PointerEvent{Frame: s.frame})
	}

	if !s.started || frame.ToggleCamera == 0 {
		return
	}
	before := s.rig.Mode()
	for i := 0; i < frame.ToggleCamera; i++ {
		s.rig.Toggle()
	}
	if mode := s.rig.Mode(); mode != before {
		slog.Info("Camera mode changed", "mode", mode.String())
		s.bus.Publish(event.EventCameraMode, event.CameraModeEvent{Frame: s.frame, Mode: mode.String()})
	}
}

func (s *Session) snapshotLocked(in input.State) Snapshot {
	snap := Snapshot{
		Frame:         s.frame,
		Started:       s.started,
		PointerLocked: s.pointerLocked,
		ActorLoaded:   s.actorLoaded,
		ActorScale:    s.actorScale,
		Pose:          s.pose,
		Camera:        s.rig.State(),
		Input:         in,
		Obstacles:     s.obstacles.Len(),
	}
	if s.jumper != nil && s.actorLoaded {
		snap.Phase = s.jumper.Phase(s.pose)
	}
	return snap
}

// recordingCollider remembers the hit behind the last rejected candidate.
type recordingCollider struct {
	prober    *physics.Prober
	hit       physics.Hit
	candidate mgl64.Vec3
}

func (c *recordingCollider) Probe(candidate mgl64.Vec3) bool {
	hit, ok := c.prober.Detect(candidate)
	if ok {
		c.hit = hit
		c.candidate = candidate
	}
	return ok
}

func (c *recordingCollider) reset() {
	c.hit = physics.Hit{}
	c.candidate = mgl64.Vec3{}
}

func formatVec(v mgl64.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X(), v.Y(), v.Z())
}
