package focuser

// MotorState is the power state of the motor driver
type MotorState int

const (
	// Disabled means the driver is not energized.  It is the initial state.
	Disabled MotorState = iota

	// Enabled means the driver is energized and will accept moves
	Enabled
)

func (s MotorState) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Enabled:
		return "enabled"
	default:
		return "unknown"
	}
}
