package view

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/Versifine/citydrive/internal/input"
	"github.com/Versifine/citydrive/internal/physics"
	"github.com/Versifine/citydrive/internal/session"
)

const (
	defaultScale     = 0.5 // world units per column
	defaultMovePulse = 180 * time.Millisecond
	// pointerScale converts one mouse cell into pointer-delta pixels.
	pointerScale = 10.0
)

var (
	styleObstacle = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleActor    = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleCamera   = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)
	styleBlocked  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorMaroon)
)

// Map is a top-down terminal view: X runs across, Z runs down, centred on
// the actor. It is both a render surface and an input device.
type Map struct {
	screen    tcell.Screen
	tracker   *input.Tracker
	obstacles physics.ObstacleSource

	scale     float64
	movePulse time.Duration
	now       func() time.Time

	mu        sync.Mutex
	lastMouse [2]int
	haveMouse bool
	buttons   tcell.ButtonMask
}

func New(screen tcell.Screen, tracker *input.Tracker, obstacles physics.ObstacleSource) *Map {
	return &Map{
		screen:    screen,
		tracker:   tracker,
		obstacles: obstacles,
		scale:     defaultScale,
		movePulse: defaultMovePulse,
		now:       time.Now,
	}
}

// Present draws one frame. Terminal cells are roughly twice as tall as
// wide, so one row covers two columns' worth of Z.
func (m *Map) Present(snap session.Snapshot) error {
	if m.screen == nil {
		return fmt.Errorf("map screen is nil")
	}
	m.screen.Clear()
	w, h := m.screen.Size()
	if w <= 0 || h <= 1 {
		return nil
	}
	rows := h - 1
	center := snap.Pose.Position

	for _, shape := range m.obstacles.Shapes() {
		if shape == nil {
			continue
		}
		m.fillBounds(shape.Bounds(), center.X(), center.Z(), w, rows)
	}

	if snap.ActorLoaded {
		cam := snap.Camera.Position
		if col, row, ok := m.cellOf(cam.X(), cam.Z(), center.X(), center.Z(), w, rows); ok {
			m.screen.SetContent(col, row, 'C', nil, styleCamera)
		}
		m.screen.SetContent(w/2, rows/2, headingGlyph(snap.Pose.Heading), nil, styleActor)
	}

	m.drawStatus(snap, w, h-1)
	m.screen.Show()
	return nil
}

// Run translates screen events into tracker input until ctx ends or the
// user quits; quit is called for q or Ctrl-C.
func (m *Map) Run(ctx context.Context, quit func()) error {
	if m.screen == nil || m.tracker == nil {
		return fmt.Errorf("map is not initialized")
	}
	m.screen.EnableMouse(tcell.MouseMotionEvents)

	go func() {
		<-ctx.Done()
		_ = m.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	for {
		ev := m.screen.PollEvent()
		if ev == nil || ctx.Err() != nil {
			return nil
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if m.handleKey(ev) && quit != nil {
				quit()
			}
		case *tcell.EventMouse:
			m.handleMouse(ev)
		case *tcell.EventResize:
			m.screen.Sync()
		}
	}
}

// handleKey reports whether the key asks to quit.
func (m *Map) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlC || (ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
		return true
	}
	if ev.Key() == tcell.KeyRune && (ev.Rune() == 'x' || ev.Rune() == 'X') {
		m.tracker.Clear()
		return false
	}
	code := keyCode(ev)
	if code == "" {
		return false
	}
	m.tracker.Tap(code, m.now().Add(m.movePulse))
	return false
}

func (m *Map) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	buttons := ev.Buttons()

	m.mu.Lock()
	dx, dy := 0, 0
	if m.haveMouse {
		dx, dy = x-m.lastMouse[0], y-m.lastMouse[1]
	}
	m.lastMouse = [2]int{x, y}
	m.haveMouse = true
	pressed := buttons&tcell.ButtonPrimary != 0 && m.buttons&tcell.ButtonPrimary == 0
	m.buttons = buttons
	m.mu.Unlock()

	if dx != 0 || dy != 0 {
		m.tracker.PointerMove(float64(dx)*pointerScale, float64(dy)*pointerScale)
	}
	if pressed {
		m.tracker.Press("Click")
	}
}

func (m *Map) fillBounds(b physics.AABB, cx, cz float64, w, rows int) {
	c0, r0, _ := m.cellOf(b.Min.X(), b.Min.Z(), cx, cz, w, rows)
	c1, r1, _ := m.cellOf(b.Max.X(), b.Max.Z(), cx, cz, w, rows)
	c0, c1 = clampRange(c0, c1, w)
	r0, r1 = clampRange(r0, r1, rows)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			m.screen.SetContent(col, row, '#', nil, styleObstacle)
		}
	}
}

// cellOf maps a world X/Z to a screen cell, reporting whether it is visible.
func (m *Map) cellOf(x, z, cx, cz float64, w, rows int) (int, int, bool) {
	col := w/2 + int(math.Floor((x-cx)/m.scale+0.5))
	row := rows/2 + int(math.Floor((z-cz)/(2*m.scale)+0.5))
	return col, row, col >= 0 && col < w && row >= 0 && row < rows
}

func (m *Map) drawStatus(snap session.Snapshot, w, row int) {
	style := styleStatus
	if snap.Collided {
		style = styleBlocked
	}
	p := snap.Pose
	line := fmt.Sprintf(" x=%.1f z=%.1f y=%.1f hdg=%.2f v=%.2f cam=%s obstacles=%d %s",
		p.Position.X(), p.Position.Z(), p.Position.Y(), p.Heading, p.Velocity,
		snap.Camera.Mode, snap.Obstacles, statusHint(snap))
	runes := []rune(line)
	for col := 0; col < w; col++ {
		r := ' '
		if col < len(runes) {
			r = runes[col]
		}
		m.screen.SetContent(col, row, r, nil, style)
	}
}

func statusHint(snap session.Snapshot) string {
	switch {
	case !snap.ActorLoaded:
		return "loading..."
	case !snap.Started:
		return "click or Enter to start"
	case !snap.PointerLocked:
		return "paused (click to resume)"
	case snap.Collided:
		return "blocked " + snap.Hit.Direction.String()
	default:
		return snap.Phase.String()
	}
}

// headingGlyph picks an arrow for the facing direction on screen, where
// -Z is up.
func headingGlyph(heading float64) rune {
	f := physics.Facing(heading)
	angle := math.Atan2(f.X(), -f.Z()) // 0 = up, clockwise positive
	octant := int(math.Floor(angle/(math.Pi/4)+0.5)) & 7
	return [...]rune{'^', '/', '>', '\\', 'v', '/', '<', '\\'}[octant]
}

func keyCode(ev *tcell.EventKey) string {
	switch ev.Key() {
	case tcell.KeyUp:
		return "ArrowUp"
	case tcell.KeyDown:
		return "ArrowDown"
	case tcell.KeyLeft:
		return "ArrowLeft"
	case tcell.KeyRight:
		return "ArrowRight"
	case tcell.KeyEnter:
		return "Enter"
	case tcell.KeyEscape:
		return "Escape"
	case tcell.KeyRune:
		r := ev.Rune()
		switch {
		case r == ' ':
			return "Space"
		case r >= 'a' && r <= 'z':
			return "Key" + string(r-'a'+'A')
		case r >= 'A' && r <= 'Z':
			return "Key" + string(r)
		case r >= '0' && r <= '9':
			return "Digit" + string(r)
		}
	}
	return ""
}

func clampRange(lo, hi, n int) (int, int) {
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}
