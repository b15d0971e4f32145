package motion

import (
	"encoding/json"
	"net/http"

	"github.com/nasa-jpl/atomfocus/generichttp"
	"github.com/nasa-jpl/atomfocus/jog"
)

// Connector opens and closes the link to the focuser
type Connector interface {
	Connect(string) error
	Disconnect()
	Connected() bool
	Port() string
}

// HTTPConnect adds routes for the connector to the route table
func HTTPConnect(iface Connector, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/connect"}] = generichttp.SetString(iface.Connect)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/disconnect"}] = generichttp.Action(func() error {
		iface.Disconnect()
		return nil
	})
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/connected"}] = generichttp.GetBool(func() (bool, error) {
		return iface.Connected(), nil
	})
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/port"}] = generichttp.GetString(func() (string, error) {
		return iface.Port(), nil
	})
}

// HTTPPorts adds a route listing the ports that can be connected to
func HTTPPorts(list func() ([]string, error), table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/ports"}] = generichttp.GetJSON(func() (interface{}, error) {
		ports, err := list()
		if ports == nil {
			ports = []string{}
		}
		return ports, err
	})
}

// JogT is the body of a jog request.  Wheel, if given, picks the direction
// from the sign of a scroll-wheel delta and Direction is ignored.
type JogT struct {
	Size      string `json:"size"`
	Direction string `json:"direction"`
	Wheel     *int   `json:"wheel,omitempty"`
}

// Gesture converts the request body to a jog gesture
func (j JogT) Gesture() (jog.Gesture, error) {
	size, err := jog.ParseSize(j.Size)
	if err != nil {
		return jog.Gesture{}, err
	}
	if j.Wheel != nil {
		return jog.Gesture{Size: size, Direction: jog.Wheel(*j.Wheel)}, nil
	}
	dir, err := jog.ParseDirection(j.Direction)
	if err != nil {
		return jog.Gesture{}, err
	}
	return jog.Gesture{Size: size, Direction: dir}, nil
}

// HTTPJog adds the jog route to the route table
func HTTPJog(j *jog.Jogger, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/jog"}] = Jog(j)
}

// Jog returns an HTTP handler func that performs one paced jog gesture
func Jog(j *jog.Jogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := JogT{}
		err := json.NewDecoder(r.Body).Decode(&in)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		g, err := in.Gesture()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := j.Jog(g); err != nil {
			generichttp.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
