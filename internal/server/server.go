// Package server exposes the engine service over HTTP.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/xtding233/gacha-forge/internal/audit"
	"github.com/xtding233/gacha-forge/internal/service"
)

type Server struct {
	svc    *service.Service
	log    *slog.Logger
	router chi.Router
}

// New wires the routes and middleware. A nil log disables access logging.
func New(svc *service.Service, log *slog.Logger) *Server {
	s := &Server{svc: svc, log: log, router: chi.NewRouter()}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	s.router.Use(chimid.RequestID, chimid.Recoverer, AccessLog(log), Compression)

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/odds", s.handleOdds)
		r.Post("/players", s.handleCreatePlayer)
		r.Route("/players/{id}", func(r chi.Router) {
			r.Get("/", s.handlePlayer)
			r.Post("/grant", s.handleGrant)
			r.Post("/draws", s.handleDraw)
			r.Get("/quote", s.handleQuote)
			r.Post("/items/{item}/forge", s.handleForge)
			r.Get("/stats", s.handleStats)
			r.Delete("/stats/{scope}", s.handleResetStats)
		})
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func parseInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, key, v)
	}
	return n, nil
}

func parseBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: invalid %s %q", errBadRequest, key, v)
	}
	return b, nil
}

func parseScope(s string) (audit.Scope, error) {
	sc, err := audit.ParseScope(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return sc, nil
}

func (s *Server) handleOdds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Odds())
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.CreatePlayer(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Player(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	tokens, err := parseInt(r, "tokens", 0)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	charms, err := parseInt(r, "protections", 0)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	p, err := s.svc.Grant(r.Context(), chi.URLParam(r, "id"), tokens, charms)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	n, err := parseInt(r, "n", 1)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	res, err := s.svc.Draw(r.Context(), chi.URLParam(r, "id"), n)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleForge(w http.ResponseWriter, r *http.Request) {
	protect, err := parseBool(r, "protect")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	auto, err := parseBool(r, "auto")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	res, err := s.svc.Forge(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "item"), protect, auto)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	scope, err := parseScope(r.URL.Query().Get("scope"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	rep, err := s.svc.Stats(r.Context(), chi.URLParam(r, "id"), scope)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	scope, err := parseScope(chi.URLParam(r, "scope"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.svc.ResetStats(r.Context(), chi.URLParam(r, "id"), scope); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	draws, err := parseInt(r, "draws", 0)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	charms, err := parseInt(r, "protections", 0)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	first, err := parseBool(r, "first_time")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	q, err := s.svc.Quote(r.Context(), chi.URLParam(r, "id"), draws, charms, first)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
