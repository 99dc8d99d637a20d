package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/giantswarm/simenv"
)

// Default create limiter settings.
const (
	DefaultCreateRate  = 10.0
	DefaultCreateBurst = 20
)

// Config configures a Server.
type Config struct {
	// CreateRate is the sustained number of instance creations per second.
	// Zero or negative disables the limiter.
	CreateRate float64
	// CreateBurst is the number of creations allowed at once.
	CreateBurst int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server routes HTTP requests to a Registry.
type Server struct {
	reg     simenv.Registry
	limiter *rate.Limiter
	log     *slog.Logger
	router  *mux.Router
}

// route is one registered endpoint with its summary for the index page.
type route struct {
	path    string
	method  string
	summary string
	handler http.HandlerFunc
}

// New returns a Server for reg.
func New(reg simenv.Registry, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		reg:    reg,
		log:    cfg.Logger.With("component", "httpapi"),
		router: mux.NewRouter(),
	}
	if cfg.CreateRate > 0 {
		burst := cfg.CreateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.CreateRate), burst)
	}

	routes := s.routes()
	for _, rt := range routes {
		s.router.HandleFunc(rt.path, rt.handler).Methods(rt.method)
	}
	s.router.HandleFunc("/", s.index(routes)).Methods(http.MethodGet)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Kind: "NotFound", Message: "no such route"})
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Kind: "MethodNotAllowed", Message: "method not allowed"})
	})
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() []route {
	return []route{
		{"/v1/engines", http.MethodGet, "List environment kinds.", s.listKinds},
		{"/v1/envs", http.MethodGet, "List live instances.", s.listInstances},
		{"/v1/envs", http.MethodPost, "Create an instance of env_kind.", s.create},
		{"/v1/envs/{id}", http.MethodDelete, "Close an instance.", s.closeInstance},
		{"/v1/envs/{id}/reset", http.MethodPost, "Reset environment.", s.reset},
		{"/v1/envs/{id}/step", http.MethodPost, "Execute given action.", s.step},
		{"/v1/envs/{id}/render", http.MethodPost, "Render the current state to a frame file.", s.render},
		{"/v1/envs/{id}/info", http.MethodGet, "Expose action and observation spaces.", s.info},
		{"/v1/envs/{id}/monitor/start", http.MethodPost, "Start recording episodes.", s.monitorStart},
		{"/v1/envs/{id}/monitor/close", http.MethodPost, "Stop recording episodes.", s.monitorClose},
		{"/v1/envs/{id}/upload", http.MethodPost, "Upload recorded episodes.", s.upload},
	}
}

func (s *Server) index(routes []route) http.HandlerFunc {
	commands := make(map[string]string, len(routes))
	for _, rt := range routes {
		commands[rt.method+" "+rt.path] = rt.summary
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"available_commands": commands})
	}
}

func (s *Server) listKinds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"kinds": s.reg.Kinds()})
}

func (s *Server) listInstances(w http.ResponseWriter, _ *http.Request) {
	list := s.reg.List()
	out := make([]instanceJSON, 0, len(list))
	for _, sum := range list {
		out = append(out, instanceJSON{
			ID:        sum.ID,
			Kind:      sum.Kind,
			State:     sum.State.String(),
			CreatedAt: sum.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string][]instanceJSON{"envs": out})
}
