package input

import (
	"math"
	"sync"
	"testing"
	"time"
)

func TestTracker_PressReleaseThroughKeymap(t *testing.T) {
	tr := NewTracker(nil, 0)
	now := time.Now()

	if !tr.Press("KeyW") || !tr.Press("KeyA") {
		t.Fatal("default bindings should map KeyW and KeyA")
	}
	if tr.Press("KeyQ") {
		t.Fatal("KeyQ should not be bound")
	}

	frame := tr.Snapshot(now)
	if !frame.Input.Forward || !frame.Input.Left || frame.Input.Backward || frame.Input.Right {
		t.Fatalf("unexpected flags: %+v", frame.Input)
	}

	// Held flags survive snapshots until released.
	frame = tr.Snapshot(now)
	if !frame.Input.Forward {
		t.Fatal("forward should still be held")
	}

	tr.Release("KeyW")
	frame = tr.Snapshot(now)
	if frame.Input.Forward {
		t.Fatal("forward should be released")
	}
}

func TestTracker_TriggersAreDrainedOncePerSnapshot(t *testing.T) {
	tr := NewTracker(nil, 0)
	tr.Press("KeyC")
	tr.Press("KeyC")
	tr.Release("KeyC")
	tr.Press("Enter")

	frame := tr.Snapshot(time.Now())
	if frame.ToggleCamera != 2 {
		t.Fatalf("ToggleCamera = %d, want 2", frame.ToggleCamera)
	}
	if !frame.LockPointer || frame.UnlockPointer {
		t.Fatalf("lock=%t unlock=%t, want lock only", frame.LockPointer, frame.UnlockPointer)
	}

	frame = tr.Snapshot(time.Now())
	if frame.ToggleCamera != 0 || frame.LockPointer {
		t.Fatalf("triggers not drained: %+v", frame)
	}
}

func TestTracker_LastLockOrUnlockWins(t *testing.T) {
	tr := NewTracker(nil, 0)
	tr.KeyDown(ActionLockPointer)
	tr.KeyDown(ActionUnlockPointer)

	frame := tr.Snapshot(time.Now())
	if frame.LockPointer || !frame.UnlockPointer {
		t.Fatalf("lock=%t unlock=%t, want unlock only", frame.LockPointer, frame.UnlockPointer)
	}
}

func TestTracker_PointerDeltaAccumulatesAndDrains(t *testing.T) {
	tr := NewTracker(nil, 0.01)
	tr.PointerMove(3, -1)
	tr.PointerMove(2, 4)

	frame := tr.Snapshot(time.Now())
	if frame.Pointer.DX != 5 || frame.Pointer.DY != 3 {
		t.Fatalf("pointer = %+v, want {5 3}", frame.Pointer)
	}
	if math.Abs(frame.Look+0.05) > 1e-12 {
		t.Fatalf("look = %v, want -0.05", frame.Look)
	}

	frame = tr.Snapshot(time.Now())
	if frame.Pointer != (PointerDelta{}) {
		t.Fatalf("pointer not drained: %+v", frame.Pointer)
	}
	if frame.Look != 0 {
		t.Fatalf("look delta should drain with the pointer, got %v", frame.Look)
	}
}

func TestTracker_PulseExpiresAndCancelsOpposite(t *testing.T) {
	tr := NewTracker(nil, 0)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tr.KeyDown(ActionBackward)
	tr.Pulse(ActionForward, base.Add(100*time.Millisecond))

	frame := tr.Snapshot(base.Add(50 * time.Millisecond))
	if !frame.Input.Forward || frame.Input.Backward {
		t.Fatalf("flags = %+v, want forward only", frame.Input)
	}

	frame = tr.Snapshot(base.Add(100 * time.Millisecond))
	if frame.Input.Forward {
		t.Fatal("pulse should expire at its deadline")
	}
}

func TestTracker_TapPulsesThroughKeymap(t *testing.T) {
	tr := NewTracker(nil, 0)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if tr.Tap("F13", base.Add(time.Second)) {
		t.Fatal("unbound code should not be tapped")
	}
	if !tr.Tap("ArrowLeft", base.Add(100*time.Millisecond)) || !tr.Tap("Enter", base) {
		t.Fatal("bound codes should be tapped")
	}

	frame := tr.Snapshot(base.Add(50 * time.Millisecond))
	if !frame.Input.Left || !frame.LockPointer {
		t.Fatalf("frame = %+v, want left held and lock triggered", frame)
	}
	if tr.Snapshot(base.Add(100 * time.Millisecond)).Input.Left {
		t.Fatal("tapped key should release at its deadline")
	}
}

func TestTracker_KeyDownCancelsPendingPulse(t *testing.T) {
	tr := NewTracker(nil, 0)
	base := time.Now()
	tr.Pulse(ActionLeft, base.Add(time.Millisecond))
	tr.KeyDown(ActionLeft)

	if frame := tr.Snapshot(base.Add(time.Second)); !frame.Input.Left {
		t.Fatal("explicit key-down should outlive the earlier pulse")
	}
}

func TestTracker_Clear(t *testing.T) {
	tr := NewTracker(nil, 0)
	tr.KeyDown(ActionForward)
	tr.KeyDown(ActionJump)
	tr.Clear()
	if tr.Held(ActionForward) || tr.Held(ActionJump) {
		t.Fatal("Clear should drop held keys")
	}
}

func TestTracker_ConcurrentWriters(t *testing.T) {
	tr := NewTracker(nil, 1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.PointerMove(1, 1)
				tr.KeyDown(ActionRight)
				tr.KeyUp(ActionRight)
			}
		}()
	}
	wg.Wait()

	frame := tr.Snapshot(time.Now())
	if frame.Pointer.DX != 800 || frame.Pointer.DY != 800 {
		t.Fatalf("pointer = %+v, want {800 800}", frame.Pointer)
	}
}

func TestParseKeymap(t *testing.T) {
	km, err := ParseKeymap(map[string]string{"KeyJ": "jump", "Space": "toggle-camera"})
	if err != nil {
		t.Fatalf("ParseKeymap() error = %v", err)
	}
	if a, _ := km.Lookup("KeyJ"); a != ActionJump {
		t.Fatalf("KeyJ -> %s, want jump", a)
	}
	if a, _ := km.Lookup("Space"); a != ActionToggleCamera {
		t.Fatalf("Space -> %s, want toggle-camera", a)
	}
	if a, _ := km.Lookup("KeyW"); a != ActionForward {
		t.Fatalf("defaults lost: KeyW -> %s", a)
	}

	if _, err := ParseKeymap(map[string]string{"KeyX": "teleport"}); err == nil {
		t.Fatal("expected error for unknown action")
	}
}
