package motion

import (
	"net/http"

	"github.com/nasa-jpl/atomfocus/generichttp"
)

// Mover describes an interface with position-related methods
type Mover interface {
	// Position gets the current logical position in steps
	Position() int

	// SetAbsolutePosition moves to an absolute position
	SetAbsolutePosition(int) error

	// MoveStep moves a relative amount
	MoveStep(int) error
}

// HTTPMove adds routes for the mover to the route table
func HTTPMove(iface Mover, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/pos"}] = GetPos(iface)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/pos"}] = generichttp.SetInt(iface.SetAbsolutePosition)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/step"}] = generichttp.SetInt(iface.MoveStep)
}

// GetPos returns an HTTP handler func from a mover that gets the position
func GetPos(m Mover) http.HandlerFunc {
	return generichttp.GetInt(func() (int, error) {
		return m.Position(), nil
	})
}
