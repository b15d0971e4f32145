package motion

import (
	"net/http"

	"github.com/nasa-jpl/atomfocus/focuser"
	"github.com/nasa-jpl/atomfocus/generichttp"
)

// Marker saves positions and returns to the midpoint between them
type Marker interface {
	MarkFirst()
	MarkSecond()
	RecenterToMarks() error
	Marks() focuser.Marks
}

// MarksT is the JSON form of the two marks; an unset mark is null
type MarksT struct {
	M1 *int `json:"m1"`
	M2 *int `json:"m2"`
}

// HTTPMark adds routes for the marker to the route table
func HTTPMark(iface Marker, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/mark/1"}] = generichttp.Action(func() error {
		iface.MarkFirst()
		return nil
	})
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/mark/2"}] = generichttp.Action(func() error {
		iface.MarkSecond()
		return nil
	})
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/marks"}] = GetMarks(iface)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/recenter"}] = generichttp.Action(iface.RecenterToMarks)
}

// GetMarks returns an HTTP handler func that replies with the marks
func GetMarks(m Marker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marks := m.Marks()
		out := MarksT{}
		if m1, ok := marks.M1(); ok {
			out.M1 = &m1
		}
		if m2, ok := marks.M2(); ok {
			out.M2 = &m2
		}
		generichttp.RespondJSON(w, out)
	}
}
