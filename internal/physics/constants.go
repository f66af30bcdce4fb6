package physics

const (
	DefaultMaxSpeed     = 5.0
	DefaultAcceleration = 0.1
	DefaultDeceleration = 0.05
	DefaultTurnStep     = 0.05
	DefaultWalkSpeed    = 2.0

	DefaultCollisionThreshold = 1.5

	DefaultJumpVelocity  = 5.0
	DefaultGravity       = 9.8
	DefaultGroundLevel   = 0.0
	DefaultGroundEpsilon = 0.01

	DefaultMaxFrameDelta = 0.1

	// Values this close to a bound snap onto it.
	VelocitySnapTolerance = 1e-9
	RayParallelTolerance  = 1e-12
)
