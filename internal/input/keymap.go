package input

import (
	"fmt"
	"strings"
)

type Action int

const (
	ActionForward Action = iota
	ActionBackward
	ActionLeft
	ActionRight
	ActionJump
	ActionToggleCamera
	ActionLockPointer
	ActionUnlockPointer
)

// Held actions come first; they index the tracker's flag arrays.
const heldActionCount = int(ActionJump) + 1

var actionNames = map[Action]string{
	ActionForward:       "forward",
	ActionBackward:      "backward",
	ActionLeft:          "left",
	ActionRight:         "right",
	ActionJump:          "jump",
	ActionToggleCamera:  "toggle-camera",
	ActionLockPointer:   "lock-pointer",
	ActionUnlockPointer: "unlock-pointer",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

func (a Action) held() bool {
	return a >= ActionForward && int(a) < heldActionCount
}

func (a Action) opposite() (Action, bool) {
	switch a {
	case ActionForward:
		return ActionBackward, true
	case ActionBackward:
		return ActionForward, true
	case ActionLeft:
		return ActionRight, true
	case ActionRight:
		return ActionLeft, true
	default:
		return 0, false
	}
}

func ParseAction(name string) (Action, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for action, n := range actionNames {
		if n == key {
			return action, nil
		}
	}
	return 0, fmt.Errorf("unknown input action %q", name)
}

// Keymap binds device key codes (browser KeyboardEvent.code names) to
// logical actions.
type Keymap map[string]Action

func DefaultKeymap() Keymap {
	return Keymap{
		"KeyW":       ActionForward,
		"ArrowUp":    ActionForward,
		"KeyS":       ActionBackward,
		"ArrowDown":  ActionBackward,
		"KeyA":       ActionLeft,
		"ArrowLeft":  ActionLeft,
		"KeyD":       ActionRight,
		"ArrowRight": ActionRight,
		"Space":      ActionJump,
		"KeyC":       ActionToggleCamera,
		"Enter":      ActionLockPointer,
		"Click":      ActionLockPointer,
		"Escape":     ActionUnlockPointer,
	}
}

// ParseKeymap builds a keymap from code -> action-name pairs, starting
// from the defaults.
func ParseKeymap(bindings map[string]string) (Keymap, error) {
	km := DefaultKeymap()
	for code, name := range bindings {
		action, err := ParseAction(name)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", code, err)
		}
		km[code] = action
	}
	return km, nil
}

func (k Keymap) Lookup(code string) (Action, bool) {
	action, ok := k[code]
	return action, ok
}
