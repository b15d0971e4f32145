package focuser

import "strconv"

// the firmware speaks newline-terminated ASCII; comm adds and strips the terminator
const (
	// CmdEnable energizes the motor driver
	CmdEnable = "E"

	// CmdDisable de-energizes the motor driver
	CmdDisable = "D"
)

// EncodeStep encodes a relative move of delta steps, e.g. -50 => "-50"
func EncodeStep(delta int) string {
	return strconv.Itoa(delta)
}
