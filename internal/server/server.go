package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/credencelabs/credence/internal/engine"
	"github.com/credencelabs/credence/internal/store"
)

// Server is the credence HTTP API server: a thin JSON surface over the
// trust engine. All computation happens synchronously in the engine.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server with the given database, engine, and version.
func New(db *store.DB, eng *engine.Engine, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/pack", s.handleLoadPack)
		r.Post("/verifications", s.handleRecordVerification)
		r.Post("/claims", s.handleRecordClaim)
		r.Post("/retractions", s.handleRetract)
		r.Post("/propagate", s.handlePropagate)

		r.Get("/concepts/{conceptID}", s.handleGetConcept)
		r.Get("/domains/{domain}", s.handleConceptsByDomain)
		r.Get("/trust/{personID}", s.handleTrustOverview)
		r.Get("/trust/{personID}/{conceptID}", s.handleGetTrust)
		r.Get("/decay/{personID}", s.handleDecayReport)
		r.Get("/calibration/{personID}", s.handleCalibration)
		r.Get("/bundles/{personID}/{bundle}", s.handleCheckBundle)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
