package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Versifine/citydrive/internal/input"
)

// Surface receives every frame after the session has stepped. Present runs
// on the frame goroutine and must not block for long.
type Surface interface {
	Present(snap Snapshot) error
}

type SurfaceFunc func(snap Snapshot) error

func (f SurfaceFunc) Present(snap Snapshot) error {
	return f(snap)
}

// Driver is the frame loop: snapshot input, tick the session, present.
type Driver struct {
	session  *Session
	tracker  *input.Tracker
	interval time.Duration
	surfaces []Surface
	now      func() time.Time

	prev time.Time
}

func NewDriver(session *Session, tracker *input.Tracker, rate int, surfaces ...Surface) *Driver {
	if rate <= 0 {
		rate = 60
	}
	return &Driver{
		session:  session,
		tracker:  tracker,
		interval: time.Second / time.Duration(rate),
		surfaces: surfaces,
		now:      time.Now,
	}
}

// WithClock replaces time.Now; tests drive frames with a fake clock.
func (d *Driver) WithClock(now func() time.Time) *Driver {
	d.now = now
	return d
}

func (d *Driver) AddSurface(s Surface) {
	if s != nil {
		d.surfaces = append(d.surfaces, s)
	}
}

func (d *Driver) Interval() time.Duration {
	return d.interval
}

// Step runs one frame at the clock's current time. The first frame has a
// zero delta.
func (d *Driver) Step() Snapshot {
	now := d.now()
	dt := 0.0
	if !d.prev.IsZero() {
		dt = now.Sub(d.prev).Seconds()
	}
	d.prev = now

	frame := d.tracker.Snapshot(now)
	snap := d.session.Tick(frame, dt)
	for _, s := range d.surfaces {
		if err := s.Present(snap); err != nil {
			slog.Warn("Surface present failed", "frame", snap.Frame, "surface", fmt.Sprintf("%T", s), "error", err)
		}
	}
	return snap
}

func (d *Driver) Run(ctx context.Context) error {
	if d == nil || d.session == nil || d.tracker == nil {
		return fmt.Errorf("driver is not initialized")
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	slog.Info("Frame driver started", "interval", d.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Frame driver stopped", "frame", d.session.Last().Frame)
			return nil
		case <-ticker.C:
			d.Step()
		}
	}
}
