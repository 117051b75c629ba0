package api

import (
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/itsatony/flightwatch/api/resources"
	_ "github.com/itsatony/flightwatch/docs"
	"github.com/itsatony/flightwatch/internal/config"
	"github.com/itsatony/flightwatch/internal/trackerservice"
	"github.com/swaggo/swag"
	nuts "github.com/vaudience/go-nuts"
)

// Middleware wraps a handler, e.g. to authenticate the request
type Middleware func(http.Handler) http.Handler

type Router struct {
	router    *mux.Router
	handler   http.Handler
	auth      Middleware
	resources *resources.Resources
	config    config.ServerConfig
}

// NewRouter builds the HTTP surface. auth protects the mutating routes.
func NewRouter(svc *trackerservice.TrackerService, cfg config.ServerConfig, auth Middleware) *Router {
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}
	r := &Router{
		router:    mux.NewRouter(),
		auth:      auth,
		resources: resources.NewResources(svc),
		config:    cfg,
	}

	r.setupRoutes()
	r.handler = r.wrap(r.router)
	return r
}

func (r *Router) setupRoutes() {
	res := r.resources

	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Streams are registered before the compressed routes
	api.HandleFunc("/events/stream", res.Events.Stream).Methods(http.MethodGet)

	// Public routes
	public := api.PathPrefix("").Subrouter()
	public.Use(handlers.CompressHandler)
	public.HandleFunc("/health", res.Tracker.Health).Methods(http.MethodGet)
	public.HandleFunc("/metrics", res.Tracker.Metrics).Methods(http.MethodGet)
	public.HandleFunc("/status", res.Tracker.Status).Methods(http.MethodGet)
	public.HandleFunc("/latest", res.Tracker.Latest).Methods(http.MethodGet)
	public.HandleFunc("/log", res.Tracker.Log).Methods(http.MethodGet)
	public.HandleFunc("/target", res.Tracker.GetTarget).Methods(http.MethodGet)
	public.HandleFunc("/events", res.Events.ListEvents).Methods(http.MethodGet)
	public.HandleFunc("/events.geojson", res.Events.GeoJSON).Methods(http.MethodGet)
	public.HandleFunc("/places", res.Places.ListPlaces).Methods(http.MethodGet)
	public.HandleFunc("/places/{id}", res.Places.GetPlace).Methods(http.MethodGet)
	public.HandleFunc("/history/{hex}", res.History.ListDays).Methods(http.MethodGet)
	public.HandleFunc("/history/{hex}/{date}", res.History.GetDay).Methods(http.MethodGet)

	// Protected routes
	protected := public.PathPrefix("").Subrouter()
	protected.Use(mux.MiddlewareFunc(r.auth))
	protected.HandleFunc("/target", res.Tracker.SetTarget).Methods(http.MethodPost)
	protected.HandleFunc("/places", res.Places.CreatePlace).Methods(http.MethodPost)
	protected.HandleFunc("/places/{id}", res.Places.UpdatePlace).Methods(http.MethodPut)
	protected.HandleFunc("/places/{id}", res.Places.DeletePlace).Methods(http.MethodDelete)
	protected.HandleFunc("/history/{hex}/backfill", res.History.Backfill).Methods(http.MethodPost)
	protected.HandleFunc("/vehicles/{hex}", res.History.DeleteVehicle).Methods(http.MethodDelete)

	// API documentation
	r.router.HandleFunc("/swagger/doc.json", serveDoc).Methods(http.MethodGet)

	// Routes of the original frontend
	legacy := r.router.PathPrefix("").Subrouter()
	legacy.Use(handlers.CompressHandler)
	legacy.HandleFunc("/latest", res.Tracker.Latest).Methods(http.MethodGet)
	legacy.HandleFunc("/log", res.Tracker.LegacyLog).Methods(http.MethodGet)
	legacy.HandleFunc("/events", res.Events.ListEvents).Methods(http.MethodGet)
	legacy.Handle("/set", r.auth(http.HandlerFunc(res.Tracker.LegacySet))).Methods(http.MethodGet)

	r.router.PathPrefix("/").Handler(staticFiles(r.config.StaticDir))
}

func (r *Router) wrap(h http.Handler) http.Handler {
	h = handlers.CombinedLoggingHandler(os.Stdout, h)
	h = handlers.CORS(
		handlers.AllowedOrigins(r.config.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(h)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func serveDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		nuts.L.Errorf("[API] Failed to read API documentation: %v", err)
		http.Error(w, "documentation unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}

// staticFiles serves the frontend, answering unknown paths like the
// original server did.
func staticFiles(dir string) http.Handler {
	root := http.Dir(dir)
	files := http.FileServer(root)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if name == "/" {
			name = "/index.html"
		}
		f, err := root.Open(name)
		if err != nil {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		info, err := f.Stat()
		f.Close()
		if err != nil || info.IsDir() {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		files.ServeHTTP(w, r)
	})
}
