package locker

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/nasa-jpl/atomfocus/generichttp"
	"github.com/stretchr/testify/assert"
)

type table generichttp.RouteTable

func (t table) RT() generichttp.RouteTable { return generichttp.RouteTable(t) }

func setup() (*Locker, http.Handler) {
	rt := table{
		{Method: http.MethodPost, Path: "/step"}: func(w http.ResponseWriter, r *http.Request) {},
		{Method: http.MethodGet, Path: "/pos"}:   func(w http.ResponseWriter, r *http.Request) {},
	}
	l := New()
	Inject(rt, l)
	r := chi.NewRouter()
	r.Use(l.Check)
	rt.RT().Bind(r)
	return l, r
}

func do(h http.Handler, method, path, body string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestLockBlocksWrites(t *testing.T) {
	l, h := setup()
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/step", `{"int":10}`))

	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/lock", `{"bool":true}`))
	assert.True(t, l.Locked())
	assert.Equal(t, http.StatusLocked, do(h, http.MethodPost, "/step", `{"int":10}`))
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/pos", ""), "reads pass while locked")

	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/lock", `{"bool":false}`))
	assert.False(t, l.Locked())
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/step", `{"int":10}`))
}

func TestLockGet(t *testing.T) {
	l, h := setup()
	l.Lock()
	req := httptest.NewRequest(http.MethodGet, "/lock", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"bool":true}`, rec.Body.String())
}

func TestLockBadBody(t *testing.T) {
	_, h := setup()
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/lock", `nope`))
}
