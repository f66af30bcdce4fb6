package input

import (
	"sync"
	"time"

	"github.com/Versifine/citydrive/internal/physics"
)

// State is the per-frame intent snapshot consumed by the integrators.
// It aliases physics.InputState to avoid field divergence.
type State = physics.InputState

type PointerDelta struct {
	DX float64
	DY float64
}

// Frame is everything the input layer hands the frame driver at once.
type Frame struct {
	Input   State
	Pointer PointerDelta
	// Look is the yaw change in radians since the previous snapshot. The
	// session folds it into the look heading only on active frames.
	Look float64
	// ToggleCamera counts toggle presses since the previous frame.
	ToggleCamera  int
	LockPointer   bool
	UnlockPointer bool
}

// Tracker collects key and pointer events from any goroutine. Held keys are
// plain flags, so repeated or out-of-order events resolve last-write-wins.
type Tracker struct {
	mu              sync.Mutex
	keymap          Keymap
	lookSensitivity float64

	held    [heldActionCount]bool
	until   [heldActionCount]time.Time
	look    float64
	pointer PointerDelta
	toggles int
	lock    bool
	unlock  bool
}

func NewTracker(keymap Keymap, lookSensitivity float64) *Tracker {
	if keymap == nil {
		keymap = DefaultKeymap()
	}
	return &Tracker{keymap: keymap, lookSensitivity: lookSensitivity}
}

// Press maps a device key code and reports whether it was bound.
func (t *Tracker) Press(code string) bool {
	action, ok := t.keymap.Lookup(code)
	if !ok {
		return false
	}
	t.KeyDown(action)
	return true
}

func (t *Tracker) Release(code string) bool {
	action, ok := t.keymap.Lookup(code)
	if !ok {
		return false
	}
	t.KeyUp(action)
	return true
}

// Tap maps a device key code and pulses the action until the deadline.
func (t *Tracker) Tap(code string, until time.Time) bool {
	action, ok := t.keymap.Lookup(code)
	if !ok {
		return false
	}
	t.Pulse(action, until)
	return true
}

func (t *Tracker) KeyDown(action Action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keyDownLocked(action)
}

func (t *Tracker) KeyUp(action Action) {
	if !action.held() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.held[action] = false
	t.until[action] = time.Time{}
}

// Pulse holds a movement action until the deadline, for devices that never
// report key-up. Pulsing one direction cancels its opposite.
func (t *Tracker) Pulse(action Action, until time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keyDownLocked(action)
	if !action.held() {
		return
	}
	t.until[action] = until
	if opp, ok := action.opposite(); ok {
		t.held[opp] = false
		t.until[opp] = time.Time{}
	}
}

func (t *Tracker) PointerMove(dx, dy float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pointer.DX += dx
	t.pointer.DY += dy
	t.look -= dx * t.lookSensitivity
}

// Snapshot releases expired pulses, then returns the held flags and drains
// the accumulated pointer delta and triggers.
func (t *Tracker) Snapshot(now time.Time) Frame {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.until {
		if !t.until[i].IsZero() && !now.Before(t.until[i]) {
			t.held[i] = false
			t.until[i] = time.Time{}
		}
	}

	frame := Frame{
		Input: State{
			Forward:  t.held[ActionForward],
			Backward: t.held[ActionBackward],
			Left:     t.held[ActionLeft],
			Right:    t.held[ActionRight],
			Jump:     t.held[ActionJump],
		},
		Pointer:       t.pointer,
		Look:          t.look,
		ToggleCamera:  t.toggles,
		LockPointer:   t.lock,
		UnlockPointer: t.unlock,
	}
	t.pointer = PointerDelta{}
	t.look = 0
	t.toggles = 0
	t.lock = false
	t.unlock = false
	return frame
}

// Held reports the current flag without consuming anything.
func (t *Tracker) Held(action Action) bool {
	if !action.held() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.held[action]
}

// Clear drops every held key and pending pulse; triggers are kept.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.held = [heldActionCount]bool{}
	t.until = [heldActionCount]time.Time{}
}

func (t *Tracker) keyDownLocked(action Action) {
	switch action {
	case ActionToggleCamera:
		t.toggles++
	case ActionLockPointer:
		t.lock = true
		t.unlock = false
	case ActionUnlockPointer:
		t.unlock = true
		t.lock = false
	default:
		if action.held() {
			t.held[action] = true
			t.until[action] = time.Time{}
		}
	}
}
