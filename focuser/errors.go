package focuser

import (
	"errors"
	"fmt"

	"github.com/nasa-jpl/atomfocus/comm"
)

var (
	// ErrOpenFailed is matched by every *OpenError
	ErrOpenFailed = errors.New("could not open port")

	// ErrAlreadyConnected is returned by Connect while a channel is open
	ErrAlreadyConnected = errors.New("already connected, disconnect first")

	// ErrNotConnected is returned by any operation that must talk to the
	// focuser while no channel is open
	ErrNotConnected = comm.ErrNotConnected

	// ErrMarksIncomplete is returned by RecenterToMarks unless both marks are set
	ErrMarksIncomplete = errors.New("both marks M1 and M2 must be set")
)

// OpenError is returned by Connect when the port could not be opened
type OpenError struct {
	Port string
	Err  error
}

func (oe *OpenError) Error() string {
	return fmt.Sprintf("can't open %s: %v", oe.Port, oe.Err)
}

// Unwrap returns the error from the underlying open call
func (oe *OpenError) Unwrap() error {
	return oe.Err
}

// Is makes errors.Is(err, ErrOpenFailed) true for any OpenError
func (oe *OpenError) Is(target error) bool {
	return target == ErrOpenFailed
}
