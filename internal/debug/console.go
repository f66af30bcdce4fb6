package debug

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/term"

	"github.com/Versifine/citydrive/internal/input"
	"github.com/Versifine/citydrive/internal/physics"
	"github.com/Versifine/citydrive/internal/session"
)

const (
	defaultMovePulse      = 180 * time.Millisecond
	defaultStatusInterval = 100 * time.Millisecond
	pointerStep           = 25.0
)

// Target is the part of the session the console inspects and pokes.
type Target interface {
	Last() session.Snapshot
	Teleport(pos mgl64.Vec3) error
	Probe(pos mgl64.Vec3) (physics.Hit, bool)
}

// Console is a raw-mode terminal front end. Terminals report no key-up, so
// movement keys are pulsed for a short window instead of held.
type Console struct {
	tracker *input.Tracker
	target  Target
	in      io.Reader
	out     io.Writer

	movePulse      time.Duration
	statusInterval time.Duration
	now            func() time.Time

	mu          sync.Mutex
	commandMode bool
	commandBuf  []rune
	statusWidth int
	lastStatus  time.Time

	outMu sync.Mutex
}

func NewConsole(tracker *input.Tracker, target Target) *Console {
	return &Console{
		tracker:        tracker,
		target:         target,
		in:             os.Stdin,
		out:            os.Stdout,
		movePulse:      defaultMovePulse,
		statusInterval: defaultStatusInterval,
		now:            time.Now,
	}
}

// WithIO swaps the terminal for arbitrary streams; raw mode is only
// entered when in is a terminal.
func (c *Console) WithIO(in io.Reader, out io.Writer) *Console {
	c.in = in
	c.out = out
	return c
}

func (c *Console) Start(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("console is nil")
	}
	if c.tracker == nil {
		return fmt.Errorf("console input tracker is nil")
	}
	if c.target == nil {
		return fmt.Errorf("console target is nil")
	}

	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("set terminal raw mode: %w", err)
		}
		defer func() {
			_ = term.Restore(fd, oldState)
			c.print("\r\n")
		}()
	}

	c.print("[debug] console started (Enter lock, W/A/S/D pulse, Space jump, C camera, U unlock, arrows look, : commands, Ctrl-C quit)\r\n")

	// ReadByte ignores ctx; a reader still blocked after cancel exits with
	// the process.
	done := make(chan error, 1)
	go func() { done <- c.readLoop(ctx) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-done:
		return err
	}
}

func (c *Console) readLoop(ctx context.Context) error {
	reader := bufio.NewReader(c.in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		b, err := reader.ReadByte()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read console input: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		if b == 3 { // Ctrl-C, raw mode swallows the signal
			return nil
		}
		c.handleKey(reader, b)
	}
}

// Present implements session.Surface by redrawing the status line, at most
// once per status interval.
func (c *Console) Present(snap session.Snapshot) error {
	now := c.now()
	c.mu.Lock()
	if c.commandMode || now.Sub(c.lastStatus) < c.statusInterval {
		c.mu.Unlock()
		return nil
	}
	c.lastStatus = now
	c.mu.Unlock()
	c.renderStatusLine(snap)
	return nil
}

func (c *Console) handleKey(reader *bufio.Reader, b byte) {
	if c.isCommandMode() {
		c.handleCommandByte(b)
		return
	}

	switch b {
	case ':':
		c.enterCommandMode()
	case 'w', 'W':
		c.pulse(input.ActionForward)
	case 's', 'S':
		c.pulse(input.ActionBackward)
	case 'a', 'A':
		c.pulse(input.ActionLeft)
	case 'd', 'D':
		c.pulse(input.ActionRight)
	case ' ':
		c.pulse(input.ActionJump)
	case 'c', 'C':
		c.tracker.KeyDown(input.ActionToggleCamera)
	case 13, 10: // Enter
		c.tracker.KeyDown(input.ActionLockPointer)
	case 'u', 'U':
		c.tracker.KeyDown(input.ActionUnlockPointer)
	case 'x', 'X':
		c.tracker.Clear()
	case 27: // ESC + arrow sequence
		next, err := reader.ReadByte()
		if err != nil || next != '[' {
			return
		}
		arrow, err := reader.ReadByte()
		if err != nil {
			return
		}
		switch arrow {
		case 'D': // left
			c.tracker.PointerMove(-pointerStep, 0)
		case 'C': // right
			c.tracker.PointerMove(pointerStep, 0)
		case 'A': // up
			c.tracker.PointerMove(0, -pointerStep)
		case 'B': // down
			c.tracker.PointerMove(0, pointerStep)
		}
	}
}

func (c *Console) pulse(action input.Action) {
	c.tracker.Pulse(action, c.now().Add(c.movePulse))
}

func (c *Console) enterCommandMode() {
	c.mu.Lock()
	c.commandMode = true
	c.commandBuf = c.commandBuf[:0]
	c.mu.Unlock()
	c.print("\r\n:")
}

func (c *Console) handleCommandByte(b byte) {
	switch b {
	case 13, 10: // Enter
		c.mu.Lock()
		cmd := strings.TrimSpace(string(c.commandBuf))
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()

		c.print("\r\n")
		if cmd != "" {
			c.executeCommand(cmd)
		}
	case 27: // ESC cancel command mode
		c.mu.Lock()
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()
		c.print("\r\n[debug] command cancelled\r\n")
	case 8, 127: // Backspace
		c.mu.Lock()
		if len(c.commandBuf) > 0 {
			c.commandBuf = c.commandBuf[:len(c.commandBuf)-1]
		}
		buf := string(c.commandBuf)
		c.mu.Unlock()
		c.printf("\r:%s \r:%s", buf, buf)
	default:
		if b < 32 || b > 126 {
			return
		}
		c.mu.Lock()
		c.commandBuf = append(c.commandBuf, rune(b))
		buf := string(c.commandBuf)
		c.mu.Unlock()
		c.printf("\r:%s", buf)
	}
}

func (c *Console) executeCommand(cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "help":
		c.printHelp()
	case "state":
		snap := c.target.Last()
		p := snap.Pose
		c.printf("[debug] frame=%d started=%t locked=%t actor=%t\r\n",
			snap.Frame, snap.Started, snap.PointerLocked, snap.ActorLoaded)
		c.printf("[debug] pos=(%.3f,%.3f,%.3f) heading=%.3f vel=%.3f vy=%.3f phase=%s\r\n",
			p.Position.X(), p.Position.Y(), p.Position.Z(),
			p.Heading, p.Velocity, p.VerticalVelocity, snap.Phase)
		cam := snap.Camera
		c.printf("[debug] camera mode=%s pos=(%.3f,%.3f,%.3f)\r\n",
			cam.Mode, cam.Position.X(), cam.Position.Y(), cam.Position.Z())
	case "tp":
		pos, ok := c.parseVec(parts, "tp")
		if !ok {
			return
		}
		if err := c.target.Teleport(pos); err != nil {
			c.printf("[debug] tp failed: %v\r\n", err)
			return
		}
		c.printf("[debug] teleported to (%.3f, %.3f, %.3f)\r\n", pos.X(), pos.Y(), pos.Z())
	case "obstacles":
		c.printf("[debug] obstacles=%d\r\n", c.target.Last().Obstacles)
	case "probe":
		pos := c.target.Last().Pose.Position
		if len(parts) > 1 {
			var ok bool
			if pos, ok = c.parseVec(parts, "probe"); !ok {
				return
			}
		}
		hit, blocked := c.target.Probe(pos)
		if !blocked {
			c.printf("[debug] probe (%.3f,%.3f,%.3f): clear\r\n", pos.X(), pos.Y(), pos.Z())
			return
		}
		c.printf("[debug] probe (%.3f,%.3f,%.3f): blocked %s at %.3f\r\n",
			pos.X(), pos.Y(), pos.Z(), hit.Direction, hit.Distance)
	default:
		c.printf("[debug] unknown command: %s\r\n", parts[0])
	}
}

func (c *Console) parseVec(parts []string, name string) (mgl64.Vec3, bool) {
	if len(parts) != 4 {
		c.printf("[debug] usage: :%s <x> <y> <z>\r\n", name)
		return mgl64.Vec3{}, false
	}
	x, err1 := strconv.ParseFloat(parts[1], 64)
	y, err2 := strconv.ParseFloat(parts[2], 64)
	z, err3 := strconv.ParseFloat(parts[3], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		c.printf("[debug] invalid %s args\r\n", name)
		return mgl64.Vec3{}, false
	}
	return mgl64.Vec3{x, y, z}, true
}

func (c *Console) printHelp() {
	c.print("[debug] keys:\r\n")
	c.print("  Enter: lock pointer (first lock starts the session)\r\n")
	c.print("  U: unlock pointer\r\n")
	c.print("  W/S/A/D: pulse movement (~180ms)\r\n")
	c.print("  Space: jump\r\n")
	c.print("  C: toggle camera mode\r\n")
	c.print("  Arrows: pointer delta\r\n")
	c.print("  X: clear all input\r\n")
	c.print("  : enter command mode\r\n")
	c.print("[debug] commands:\r\n")
	c.print("  :state\r\n")
	c.print("  :tp <x> <y> <z>\r\n")
	c.print("  :probe [<x> <y> <z>]\r\n")
	c.print("  :obstacles\r\n")
	c.print("  :help\r\n")
}

func (c *Console) renderStatusLine(snap session.Snapshot) {
	in := snap.Input
	p := snap.Pose
	line := fmt.Sprintf(
		"[W:%s S:%s A:%s D:%s JMP:%s | LOCK:%s CAM:%s | X:%.2f Y:%.2f Z:%.2f HDG:%.2f V:%.2f %s]",
		boolLabel(in.Forward),
		boolLabel(in.Backward),
		boolLabel(in.Left),
		boolLabel(in.Right),
		boolLabel(in.Jump),
		boolLabel(snap.PointerLocked),
		snap.Camera.Mode,
		p.Position.X(),
		p.Position.Y(),
		p.Position.Z(),
		p.Heading,
		p.Velocity,
		statusTag(snap),
	)

	c.mu.Lock()
	width := c.statusWidth
	if len(line) > c.statusWidth {
		c.statusWidth = len(line)
	}
	c.mu.Unlock()

	padding := ""
	if width > len(line) {
		padding = strings.Repeat(" ", width-len(line))
	}
	c.printf("\r%s%s", line, padding)
}

func (c *Console) isCommandMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commandMode
}

func (c *Console) print(s string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, _ = io.WriteString(c.out, s)
}

func (c *Console) printf(format string, args ...any) {
	c.print(fmt.Sprintf(format, args...))
}

func statusTag(snap session.Snapshot) string {
	switch {
	case !snap.ActorLoaded:
		return "loading"
	case !snap.Started:
		return "press Enter"
	case !snap.PointerLocked:
		return "paused"
	case snap.Collided:
		return "blocked " + snap.Hit.Direction.String()
	default:
		return snap.Phase.String()
	}
}

func boolLabel(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
