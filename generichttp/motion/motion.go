// Package motion provides an HTTP interface to a focuser
package motion

/*
This file checks which of the optional interfaces in this package a
controller implements and binds the routes for each of them.
*/
import (
	"net/http"

	"github.com/nasa-jpl/atomfocus/focuser"
	"github.com/nasa-jpl/atomfocus/generichttp"
	"github.com/nasa-jpl/atomfocus/jog"
)

func init() {
	generichttp.RegisterStatus(focuser.ErrNotConnected, http.StatusConflict)
	generichttp.RegisterStatus(focuser.ErrAlreadyConnected, http.StatusConflict)
	generichttp.RegisterStatus(focuser.ErrMarksIncomplete, http.StatusConflict)
	generichttp.RegisterStatus(focuser.ErrOpenFailed, http.StatusBadGateway)
	generichttp.RegisterStatus(jog.ErrThrottled, http.StatusTooManyRequests)
	generichttp.RegisterStatus(ErrIdleTimeout, http.StatusBadRequest)
}

// Controller is used for the HTTP interface, which will check if the concrete
// type satisfies the other interfaces in this package and inject their routes
// automatically
type Controller interface {
	// Mover - all Controllers must be Movers
	Mover
}

// HTTPFocuser wraps a focuser controller with HTTP
type HTTPFocuser struct {
	Controller

	RouteTable generichttp.RouteTable
}

// NewHTTPFocuser returns a new HTTP wrapper with the route table pre-configured
func NewHTTPFocuser(c Controller) HTTPFocuser {
	w := HTTPFocuser{Controller: c}
	rt := generichttp.RouteTable{}
	HTTPMove(c, rt)
	if enabler, ok := interface{}(c).(Enabler); ok {
		HTTPEnable(enabler, rt)
	}
	if marker, ok := interface{}(c).(Marker); ok {
		HTTPMark(marker, rt)
	}
	if connector, ok := interface{}(c).(Connector); ok {
		HTTPConnect(connector, rt)
	}
	if idler, ok := interface{}(c).(Idler); ok {
		HTTPIdle(idler, rt)
	}
	if statuser, ok := interface{}(c).(Statuser); ok {
		HTTPStatus(statuser, rt)
	}
	w.RouteTable = rt
	return w
}

// RT satisfies the generichttp.HTTPer interface
func (h HTTPFocuser) RT() generichttp.RouteTable {
	return h.RouteTable
}

// Statuser can report a snapshot of its state
type Statuser interface {
	Status() focuser.Status
}

// HTTPStatus adds the status route to the table
func HTTPStatus(s Statuser, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/status"}] = func(w http.ResponseWriter, r *http.Request) {
		generichttp.RespondJSON(w, s.Status())
	}
}
