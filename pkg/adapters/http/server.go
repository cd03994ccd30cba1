package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/rules"
	"github.com/go-chi/chi/v5"
)

// Service defines the zone queries the HTTP API exposes.
type Service interface {
	Offset(ctx context.Context, id string, instant time.Time) (domain.Offset, error)
	Resolve(ctx context.Context, id string, local domain.LocalDateTime) (domain.OffsetInfo, error)
	Check(ctx context.Context, id string, odt domain.OffsetDateTime) (*rules.Rules, error)
	Transitions(ctx context.Context, id string, from, to time.Time) ([]domain.Transition, error)
	Zones(ctx context.Context, group string) ([]string, error)
}

// Server serves the zone query API.
type Server struct {
	Service Service
	Version string
	Logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a new HTTP handler for the service.
func NewHandler(svc Service, version string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{Service: svc, Version: version, Logger: logger, now: time.Now}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/offset", s.GetOffset)
		r.Get("/resolve", s.GetResolve)
		r.Get("/valid", s.GetValid)
		r.Get("/transitions", s.GetTransitions)
		r.Get("/zones/{group}", s.GetZones)
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OffsetResponse is the body of GET /v1/offset.
type OffsetResponse struct {
	Zone   string `json:"zone"`
	At     string `json:"at"`
	Offset string `json:"offset"`
}

// TransitionResponse describes one transition.
type TransitionResponse struct {
	Kind         string `json:"kind"`
	Instant      string `json:"instant"`
	LocalBefore  string `json:"local_before"`
	LocalAfter   string `json:"local_after"`
	OffsetBefore string `json:"offset_before"`
	OffsetAfter  string `json:"offset_after"`
}

// ResolveResponse is the body of GET /v1/resolve.
type ResolveResponse struct {
	Zone       string              `json:"zone"`
	Local      string              `json:"local"`
	Kind       string              `json:"kind"`
	Offsets    []string            `json:"offsets"`
	Transition *TransitionResponse `json:"transition,omitempty"`
}

// ValidResponse is the body of GET /v1/valid.
type ValidResponse struct {
	Zone  string `json:"zone"`
	At    string `json:"at"`
	Valid bool   `json:"valid"`
}

// TransitionsResponse is the body of GET /v1/transitions.
type TransitionsResponse struct {
	Zone        string               `json:"zone"`
	From        string               `json:"from"`
	To          string               `json:"to"`
	Transitions []TransitionResponse `json:"transitions"`
}

// ZonesResponse is the body of GET /v1/zones/{group}.
type ZonesResponse struct {
	Group string   `json:"group"`
	Zones []string `json:"zones"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "zonerules-http",
		"version": strings.TrimSpace(s.Version),
	})
}

// GetOffset handles GET /v1/offset?zone=...&at=RFC3339. The instant defaults to now.
func (s *Server) GetOffset(w http.ResponseWriter, r *http.Request) {
	zone, ok := s.requireZone(w, r)
	if !ok {
		return
	}
	at, err := s.instantParam(r, "at", s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	off, err := s.Service.Offset(r.Context(), zone, at)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, OffsetResponse{Zone: zone, At: at.UTC().Format(time.RFC3339), Offset: off.ID()})
}

// GetResolve handles GET /v1/resolve?zone=...&local=2019-03-31T02:30.
func (s *Server) GetResolve(w http.ResponseWriter, r *http.Request) {
	zone, ok := s.requireZone(w, r)
	if !ok {
		return
	}
	local, err := domain.ParseLocalDateTime(r.URL.Query().Get("local"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	info, err := s.Service.Resolve(r.Context(), zone, local)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := ResolveResponse{Zone: zone, Local: local.String(), Kind: info.Kind().String(), Offsets: []string{}}
	for _, off := range info.ValidOffsets() {
		resp.Offsets = append(resp.Offsets, off.ID())
	}
	if t, ok := info.Transition(); ok {
		tr := mapTransition(t)
		resp.Transition = &tr
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetValid handles GET /v1/valid?zone=...&at=2019-10-27T02:30+01:00.
// A zone that rejects the offset answers 409.
func (s *Server) GetValid(w http.ResponseWriter, r *http.Request) {
	zone, ok := s.requireZone(w, r)
	if !ok {
		return
	}
	odt, err := domain.ParseOffsetDateTime(r.URL.Query().Get("at"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.Service.Check(r.Context(), zone, odt); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ValidResponse{Zone: zone, At: odt.String(), Valid: true})
}

// GetTransitions handles GET /v1/transitions?zone=...&from=RFC3339&to=RFC3339.
// The range defaults to the current year.
func (s *Server) GetTransitions(w http.ResponseWriter, r *http.Request) {
	zone, ok := s.requireZone(w, r)
	if !ok {
		return
	}
	now := s.now().UTC()
	from, err := s.instantParam(r, "from", time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := s.instantParam(r, "to", time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ts, err := s.Service.Transitions(r.Context(), zone, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := TransitionsResponse{
		Zone:        zone,
		From:        from.UTC().Format(time.RFC3339),
		To:          to.UTC().Format(time.RFC3339),
		Transitions: make([]TransitionResponse, 0, len(ts)),
	}
	for _, t := range ts {
		resp.Transitions = append(resp.Transitions, mapTransition(t))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetZones handles GET /v1/zones/{group}.
func (s *Server) GetZones(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	zones, err := s.Service.Zones(r.Context(), group)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if zones == nil {
		zones = []string{}
	}
	s.writeJSON(w, http.StatusOK, ZonesResponse{Group: group, Zones: zones})
}

func (s *Server) requireZone(w http.ResponseWriter, r *http.Request) (string, bool) {
	zone := r.URL.Query().Get("zone")
	if zone == "" {
		s.writeError(w, r, fmt.Errorf("%w: zone parameter is required", domain.ErrInvalidArgument))
		return "", false
	}
	return zone, true
}

func (s *Server) instantParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339, got %q", domain.ErrInvalidArgument, name, raw)
	}
	return t, nil
}

func mapTransition(t domain.Transition) TransitionResponse {
	kind := "overlap"
	if t.IsGap() {
		kind = "gap"
	}
	return TransitionResponse{
		Kind:         kind,
		Instant:      t.Instant().UTC().Format(time.RFC3339),
		LocalBefore:  t.LocalBefore().String(),
		LocalAfter:   t.LocalAfter().String(),
		OffsetBefore: t.OffsetBefore().ID(),
		OffsetAfter:  t.OffsetAfter().ID(),
	}
}

// statusOf maps the error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownZone):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOffsetMismatch):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", "path", r.URL.Path, "err", err)
	} else {
		s.Logger.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}
