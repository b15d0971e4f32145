package motion

import (
	"errors"
	"net/http"
	"time"

	"github.com/nasa-jpl/atomfocus/generichttp"
)

// Enabler describes an interface with enable/disable methods for the motor
type Enabler interface {
	// Enable energizes the motor
	Enable() error

	// Disable de-energizes the motor
	Disable() error

	// GetEnabled gets if the motor is energized
	GetEnabled() (bool, error)
}

// HTTPEnable adds routes for the enabler to the route table
func HTTPEnable(iface Enabler, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/enabled"}] = generichttp.GetBool(iface.GetEnabled)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/enabled"}] = SetEnabled(iface)
}

// SetEnabled returns an HTTP handler func from an enabler that enables or disables the motor
func SetEnabled(e Enabler) http.HandlerFunc {
	return generichttp.SetBool(func(b bool) error {
		if b {
			return e.Enable()
		}
		return e.Disable()
	})
}

// ErrIdleTimeout is returned for a power-off delay that is not positive
var ErrIdleTimeout = errors.New("idle timeout must be a positive number of seconds")

// Idler has an adjustable auto power-off delay
type Idler interface {
	IdleTimeout() time.Duration
	SetIdleTimeout(time.Duration)
}

// HTTPIdle adds routes that get and set the power-off delay in whole seconds
func HTTPIdle(iface Idler, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/idle-timeout"}] = generichttp.GetInt(func() (int, error) {
		return int(iface.IdleTimeout() / time.Second), nil
	})
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/idle-timeout"}] = generichttp.SetInt(func(secs int) error {
		if secs <= 0 {
			return ErrIdleTimeout
		}
		iface.SetIdleTimeout(time.Duration(secs) * time.Second)
		return nil
	})
}
