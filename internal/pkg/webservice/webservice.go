package webservice

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ohowland/gridzone/internal/pkg/config"
	"github.com/ohowland/gridzone/internal/pkg/pipeline"
	"github.com/ohowland/gridzone/internal/pkg/report"
	"github.com/rs/cors"
)

const shutdownTimeout = 5 * time.Second

// RunStatus summarises the served run.
type RunStatus struct {
	PID        uuid.UUID `json:"PID"`
	Buses      int       `json:"Buses"`
	Lines      int       `json:"Lines"`
	Zones      int       `json:"Zones"`
	FaultZones []string  `json:"FaultZones"`
	Resilience float64   `json:"Resilience"`
}

// ZoneView is one zone with its member buses.
type ZoneView struct {
	report.Summary
	Buses   []string          `json:"Buses"`
	Score   *report.ZoneScore `json:"Score,omitempty"`
	Outline *report.Outline   `json:"Outline,omitempty"`
}

// App serves one precomputed pipeline result.
type App struct {
	Result   pipeline.Result
	Config   config.Webservice
	topology pipeline.Topology
}

func New(res pipeline.Result, cfg config.Webservice) *App {
	return &App{Result: res, Config: cfg, topology: res.Topology()}
}

func (app *App) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", app.BaseHandler)
	r.HandleFunc("/run", app.RunHandler).Methods("GET")
	r.HandleFunc("/zones", app.ZonesHandler).Methods("GET")
	r.HandleFunc("/zones/{zone}", app.ZoneHandler).Methods("GET")
	r.HandleFunc("/buses", app.BusesHandler).Methods("GET")
	r.HandleFunc("/buses/{label}", app.BusHandler).Methods("GET")
	r.HandleFunc("/edges", app.EdgesHandler).Methods("GET")
	r.NotFoundHandler = http.HandlerFunc(notFound)
	return r
}

// Handler is the router wrapped with the configured CORS policy.
func (app *App) Handler() http.Handler {
	origins := app.Config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})
	return c.Handler(app.Router())
}

// Serve listens on the configured address until ctx is done.
func (app *App) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: app.Config.Addr, Handler: app.Handler()}

	errs := make(chan error, 1)
	go func() {
		log.Println("[Webservice] Starting Server on", app.Config.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Println("[Webservice] Server Shutdown")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	body, err := json.Marshal(v)
	if err != nil {
		log.Println("malformed JSON:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	w.Write(body)
}

type errorBody struct {
	Error string `json:"Error"`
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{"not found: " + r.URL.Path})
}

func (app *App) BaseHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
}

func (app *App) RunHandler(w http.ResponseWriter, r *http.Request) {
	res := app.Result
	writeJSON(w, http.StatusOK, RunStatus{
		PID:        res.PID,
		Buses:      res.Graph.Len(),
		Lines:      len(res.Graph.Edges()),
		Zones:      len(res.Report.Zones),
		FaultZones: res.Report.FaultZones(),
		Resilience: res.Resilience.Overall,
	})
}

func (app *App) zoneView(s report.Summary) ZoneView {
	v := ZoneView{Summary: s, Buses: []string{}}
	for _, i := range app.Result.Assignment.Members(s.Zone) {
		v.Buses = append(v.Buses, app.Result.Graph.Label(i))
	}
	for i, zs := range app.Result.Resilience.Zones {
		if zs.Zone == s.Zone {
			v.Score = &app.Result.Resilience.Zones[i]
		}
	}
	for i, o := range app.Result.Outlines {
		if o.Zone == s.Zone {
			v.Outline = &app.Result.Outlines[i]
		}
	}
	return v
}

func (app *App) ZonesHandler(w http.ResponseWriter, r *http.Request) {
	views := make([]ZoneView, 0, len(app.Result.Report.Zones))
	for _, s := range app.Result.Report.Zones {
		views = append(views, app.zoneView(s))
	}
	writeJSON(w, http.StatusOK, views)
}

func (app *App) ZoneHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	z, err := strconv.Atoi(vars["zone"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{"malformed zone id: " + vars["zone"]})
		return
	}
	s, ok := app.Result.Report.Zone(z)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{"unknown zone: " + vars["zone"]})
		return
	}
	writeJSON(w, http.StatusOK, app.zoneView(s))
}

func (app *App) BusesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.topology.Buses)
}

func (app *App) BusHandler(w http.ResponseWriter, r *http.Request) {
	label := mux.Vars(r)["label"]
	i, ok := app.Result.Graph.Index(label)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{"unknown bus: " + label})
		return
	}
	writeJSON(w, http.StatusOK, app.topology.Buses[i])
}

func (app *App) EdgesHandler(w http.ResponseWriter, r *http.Request) {
	edges := app.topology.Edges
	if edges == nil {
		edges = []pipeline.EdgeRecord{}
	}
	writeJSON(w, http.StatusOK, edges)
}
