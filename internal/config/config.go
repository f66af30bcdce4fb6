package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/Versifine/citydrive/internal/camera"
	"github.com/Versifine/citydrive/internal/input"
	"github.com/Versifine/citydrive/internal/physics"
)

type Config struct {
	Logging   LoggingConfig     `yaml:"logging"`
	Frontend  string            `yaml:"frontend"`
	Frame     FrameConfig       `yaml:"frame"`
	Movement  MovementConfig    `yaml:"movement"`
	Jump      JumpConfig        `yaml:"jump"`
	Collision CollisionConfig   `yaml:"collision"`
	Camera    CameraConfig      `yaml:"camera"`
	Keys      map[string]string `yaml:"keys"`
	Assets    AssetsConfig      `yaml:"assets"`
	Stream    StreamConfig      `yaml:"stream"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type FrameConfig struct {
	Rate int `yaml:"rate"`

	// MaxDelta caps the per-frame dt in seconds; 0 disables the cap.
	MaxDelta float64 `yaml:"max_delta"`
}

type MovementConfig struct {
	Mode         string  `yaml:"mode"`
	MaxSpeed     float64 `yaml:"max_speed"`
	Acceleration float64 `yaml:"acceleration"`
	Deceleration float64 `yaml:"deceleration"`
	TurnStep     float64 `yaml:"turn_step"`
	ReverseSteer bool    `yaml:"reverse_steer"`
	WalkSpeed    float64 `yaml:"walk_speed"`
}

type JumpConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Launch        float64 `yaml:"launch_velocity"`
	Gravity       float64 `yaml:"gravity"`
	GroundLevel   float64 `yaml:"ground_level"`
	GroundEpsilon float64 `yaml:"ground_epsilon"`
}

type CollisionConfig struct {
	Threshold  float64  `yaml:"threshold"`
	Directions []string `yaml:"directions"`
}

type CameraConfig struct {
	Mode        string    `yaml:"mode"`
	Offset      []float64 `yaml:"offset"`
	TurnLean    float64   `yaml:"turn_lean"`
	Sensitivity float64   `yaml:"sensitivity"`
	// LookSensitivity converts horizontal pointer delta into look yaw.
	LookSensitivity float64 `yaml:"look_sensitivity"`
}

type AssetsConfig struct {
	Dir       string   `yaml:"dir"`
	Obstacles []string `yaml:"obstacles"`
	Actor     string   `yaml:"actor"`
}

type StreamConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`

	// AllowedOrigins lists cross-origin pages allowed to connect; same-origin
	// pages and clients without an Origin header are always accepted.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Default() *Config {
	return &Config{
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Frontend: "console",
		Frame:    FrameConfig{Rate: 60, MaxDelta: physics.DefaultMaxFrameDelta},
		Movement: MovementConfig{
			Mode:         "velocity",
			MaxSpeed:     physics.DefaultMaxSpeed,
			Acceleration: physics.DefaultAcceleration,
			Deceleration: physics.DefaultDeceleration,
			TurnStep:     physics.DefaultTurnStep,
			ReverseSteer: true,
			WalkSpeed:    physics.DefaultWalkSpeed,
		},
		Jump: JumpConfig{
			Launch:        physics.DefaultJumpVelocity,
			Gravity:       physics.DefaultGravity,
			GroundLevel:   physics.DefaultGroundLevel,
			GroundEpsilon: physics.DefaultGroundEpsilon,
		},
		Collision: CollisionConfig{
			Threshold:  physics.DefaultCollisionThreshold,
			Directions: []string{"up", "right", "left", "forward", "backward"},
		},
		Camera: CameraConfig{
			Mode:            "rigid",
			Offset:          []float64{0, 2, 5},
			TurnLean:        1,
			Sensitivity:     0.002,
			LookSensitivity: 0.002,
		},
		Assets: AssetsConfig{
			Dir:       "assets",
			Obstacles: []string{"low_poly_city"},
			Actor:     "trabant",
		},
		Stream: StreamConfig{Host: "127.0.0.1", Port: 8090},
	}
}

// Load reads the YAML file over Default, so absent keys keep their
// defaults, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Frame.Rate <= 0 {
		errs = append(errs, fmt.Errorf("frame.rate must be positive, got %d", c.Frame.Rate))
	}
	if c.Frame.MaxDelta < 0 {
		errs = append(errs, fmt.Errorf("frame.max_delta must not be negative"))
	}
	switch c.Frontend {
	case "console", "tui", "headless":
	default:
		errs = append(errs, fmt.Errorf("unknown frontend %q", c.Frontend))
	}
	if _, err := physics.ParseMovementMode(c.Movement.Mode); err != nil {
		errs = append(errs, err)
	}
	for name, v := range map[string]float64{
		"movement.max_speed":      c.Movement.MaxSpeed,
		"movement.acceleration":   c.Movement.Acceleration,
		"movement.deceleration":   c.Movement.Deceleration,
		"movement.walk_speed":     c.Movement.WalkSpeed,
		"jump.gravity":            c.Jump.Gravity,
		"jump.ground_epsilon":     c.Jump.GroundEpsilon,
		"camera.sensitivity":      c.Camera.Sensitivity,
		"camera.look_sensitivity": c.Camera.LookSensitivity,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, v))
		}
	}
	if c.Collision.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("collision.threshold must be positive, got %v", c.Collision.Threshold))
	}
	if c.Jump.Enabled && c.Jump.Launch <= 0 {
		errs = append(errs, fmt.Errorf("jump.launch_velocity must be positive when jump is enabled"))
	}
	if _, err := c.ProbeDirections(); err != nil {
		errs = append(errs, err)
	}
	if _, err := camera.ParseMode(c.Camera.Mode); err != nil {
		errs = append(errs, err)
	}
	if len(c.Camera.Offset) != 3 {
		errs = append(errs, fmt.Errorf("camera.offset needs 3 components, got %d", len(c.Camera.Offset)))
	}
	if _, err := input.ParseKeymap(c.Keys); err != nil {
		errs = append(errs, err)
	}
	if c.Stream.Enabled && (c.Stream.Port <= 0 || c.Stream.Port > 65535) {
		errs = append(errs, fmt.Errorf("stream.port out of range: %d", c.Stream.Port))
	}
	return errors.Join(errs...)
}

func (c *Config) MotionConfig() physics.MotionConfig {
	mode, _ := physics.ParseMovementMode(c.Movement.Mode)
	return physics.MotionConfig{
		Mode:          mode,
		MaxSpeed:      c.Movement.MaxSpeed,
		Acceleration:  c.Movement.Acceleration,
		Deceleration:  c.Movement.Deceleration,
		TurnStep:      c.Movement.TurnStep,
		ReverseSteer:  c.Movement.ReverseSteer,
		WalkSpeed:     c.Movement.WalkSpeed,
		MaxFrameDelta: c.Frame.MaxDelta,
	}
}

// JumpConfig returns nil when vertical motion is disabled.
func (c *Config) JumpConfig() *physics.JumpConfig {
	if !c.Jump.Enabled {
		return nil
	}
	return &physics.JumpConfig{
		Launch:        c.Jump.Launch,
		Gravity:       c.Jump.Gravity,
		GroundLevel:   c.Jump.GroundLevel,
		GroundEpsilon: c.Jump.GroundEpsilon,
	}
}

func (c *Config) ProbeDirections() ([]physics.Direction, error) {
	dirs := make([]physics.Direction, 0, len(c.Collision.Directions))
	for _, name := range c.Collision.Directions {
		d, err := physics.ParseDirection(name)
		if err != nil {
			return nil, fmt.Errorf("collision.directions: %w", err)
		}
		dirs = append(dirs, d)
	}
	return dirs, nil
}

func (c *Config) CameraConfig() camera.Config {
	mode, _ := camera.ParseMode(c.Camera.Mode)
	cfg := camera.Config{
		Mode:        mode,
		TurnLean:    c.Camera.TurnLean,
		Sensitivity: c.Camera.Sensitivity,
	}
	if len(c.Camera.Offset) == 3 {
		cfg.Offset = mgl64.Vec3{c.Camera.Offset[0], c.Camera.Offset[1], c.Camera.Offset[2]}
	}
	return cfg
}

func (c *Config) Keymap() input.Keymap {
	km, err := input.ParseKeymap(c.Keys)
	if err != nil {
		return input.DefaultKeymap()
	}
	return km
}
