package webservice

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ohowland/gridzone/internal/pkg/circuit"
	"github.com/ohowland/gridzone/internal/pkg/config"
	"github.com/ohowland/gridzone/internal/pkg/pipeline"
	"github.com/ohowland/gridzone/internal/pkg/zone"
	"gonum.org/v1/gonum/spatial/r2"
	"gotest.tools/v3/assert"
)

func newApp(t *testing.T) *App {
	src := circuit.NewSliceSource([]circuit.LineRecord{
		{Name: "L1", From: "A", To: "B", R1: 0.5},
		{Name: "L2", From: "B", To: "C", R1: 0.25},
		{Name: "L3", From: "C", To: "D", R1: 0},
		{Name: "L4", From: "D", To: "A", R1: 1.0},
	})
	coords := circuit.CoordTable{
		"A": r2.Vec{X: 0, Y: 0},
		"B": r2.Vec{X: 1, Y: 0},
		"C": r2.Vec{X: 1, Y: 1},
		"D": r2.Vec{X: 0, Y: 1},
	}
	cfg := pipeline.Config{Zones: zone.Config{K: 2, Seed: 42}, FaultZones: []int{1}}

	res, err := pipeline.Run(cfg, src, coords)
	assert.NilError(t, err)
	return New(res, config.Webservice{AllowedOrigins: []string{"http://localhost:3000"}})
}

func get(app *App, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://example.com"+path, nil)
	app.Router().ServeHTTP(w, r)
	return w
}

func TestBaseGet(t *testing.T) {
	w := get(newApp(t), "/")
	assert.Equal(t, http.StatusOK, w.Code, "get returned 200")
	assert.Equal(t, "application/json; charset=UTF-8", w.Header().Get("Content-Type"), "got expected Content-Type in response")
}

func TestRunGet(t *testing.T) {
	app := newApp(t)
	w := get(app, "/run")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=UTF-8", w.Header().Get("Content-Type"))

	status := RunStatus{}
	err := json.Unmarshal(w.Body.Bytes(), &status)
	assert.NilError(t, err)
	assert.Equal(t, status.PID, app.Result.PID)
	assert.Equal(t, status.Buses, 4)
	assert.Equal(t, status.Lines, 3)
	assert.Equal(t, status.Zones, 2)
	assert.DeepEqual(t, status.FaultZones, []string{"Zone 2"})
}

func TestZonesGet(t *testing.T) {
	w := get(newApp(t), "/zones")
	assert.Equal(t, http.StatusOK, w.Code)

	var views []ZoneView
	err := json.Unmarshal(w.Body.Bytes(), &views)
	assert.NilError(t, err)
	assert.Equal(t, len(views), 2)

	total := 0
	for _, v := range views {
		assert.Equal(t, len(v.Buses), v.TotalNodes)
		total += v.TotalNodes
	}
	assert.Equal(t, total, 4)
	assert.Equal(t, views[1].FaultPercent, 100.0)
}

func TestZoneGet(t *testing.T) {
	app := newApp(t)
	w := get(app, "/zones/1")
	assert.Equal(t, http.StatusOK, w.Code)

	v := ZoneView{}
	err := json.Unmarshal(w.Body.Bytes(), &v)
	assert.NilError(t, err)
	assert.Equal(t, v.Name, "Zone 2")
	assert.Equal(t, len(v.Buses), len(app.Result.Assignment.Members(1)))
}

func TestZoneGetErrors(t *testing.T) {
	app := newApp(t)

	w := get(app, "/zones/one")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(app, "/zones/7")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json; charset=UTF-8", w.Header().Get("Content-Type"))
}

func TestBusesGet(t *testing.T) {
	app := newApp(t)
	w := get(app, "/buses")
	assert.Equal(t, http.StatusOK, w.Code)

	var buses []pipeline.BusRecord
	err := json.Unmarshal(w.Body.Bytes(), &buses)
	assert.NilError(t, err)
	assert.Equal(t, len(buses), 4)

	w = get(app, "/buses/C")
	assert.Equal(t, http.StatusOK, w.Code)
	bus := pipeline.BusRecord{}
	err = json.Unmarshal(w.Body.Bytes(), &bus)
	assert.NilError(t, err)
	assert.Equal(t, bus.Index, 2)
	assert.Equal(t, bus.X, 1.0)
	assert.Equal(t, bus.Zone, app.Result.Assignment[2])

	w = get(app, "/buses/Z")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEdgesGet(t *testing.T) {
	w := get(newApp(t), "/edges")
	assert.Equal(t, http.StatusOK, w.Code)

	var edges []pipeline.EdgeRecord
	err := json.Unmarshal(w.Body.Bytes(), &edges)
	assert.NilError(t, err)
	assert.DeepEqual(t, edges, []pipeline.EdgeRecord{
		{From: "A", To: "B", Weight: 2},
		{From: "B", To: "C", Weight: 4},
		{From: "D", To: "A", Weight: 1},
	})
}

func TestUnknownRoute(t *testing.T) {
	w := get(newApp(t), "/asset/status")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json; charset=UTF-8", w.Header().Get("Content-Type"))
}

func TestCORS(t *testing.T) {
	app := newApp(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://example.com/run", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	app.Handler().ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, w.Header().Get("Access-Control-Allow-Origin"), "http://localhost:3000")

	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "http://example.com/run", nil)
	r.Header.Set("Origin", "http://evil.example")
	app.Handler().ServeHTTP(w, r)
	assert.Equal(t, w.Header().Get("Access-Control-Allow-Origin"), "")
}
