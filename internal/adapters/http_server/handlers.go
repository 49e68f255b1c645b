// internal/adapters/http_server/handlers.go
package httpserver

import (
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"estate_search/internal/app"
	"estate_search/internal/domain"
	"estate_search/internal/session"
)

type Handlers struct {
	Svc        *app.SearchService
	Bus        *session.Bus
	Negotiator domain.Negotiator // optional; nil means the endpoint answers 503

	// Await budgets; zero values get defaults in MountHandlers.
	SearchWait  time.Duration
	GeocodeWait time.Duration
	POIWait     time.Duration
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	if h.SearchWait <= 0 {
		h.SearchWait = 30 * time.Second
	}
	if h.GeocodeWait <= 0 {
		h.GeocodeWait = 15 * time.Second
	}
	if h.POIWait <= 0 {
		h.POIWait = 20 * time.Second
	}
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/searches", h.postSearch)
	s.mux.Post("/v1/negotiations", h.postNegotiation)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func newSessionID() string {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		// fall back to a time-derived id rather than failing the request
		return hex.EncodeToString([]byte(time.Now().Format("20060102150405.000000000")))
	}
	return hex.EncodeToString(b[:])
}

type searchResponse struct {
	Status       string              `json:"status"`
	Requirements domain.Requirements `json:"requirements"`
	Properties   []domain.Property   `json:"properties"`
	Summary      string              `json:"summary"`
	TotalFound   int                 `json:"total_found"`
}

func (h *Handlers) postSearch(w http.ResponseWriter, r *http.Request) {
	var req domain.Requirements
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "body must be a JSON requirements object")
		return
	}
	if req.Location == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "location is required")
		return
	}

	sid := newSessionID()
	if err := h.Bus.Begin(sid); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Session error", err.Error())
		return
	}
	defer h.Bus.End(sid)

	ctx := r.Context()
	go h.Svc.SearchProperties(ctx, req, sid)

	v, err := h.Bus.AwaitResult(ctx, sid, session.KindSearch, h.SearchWait)
	if err != nil {
		if errors.Is(err, session.ErrAwaitTimeout) {
			writeProblem(w, http.StatusGatewayTimeout, "Search timed out", "no result within the wait budget")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Session error", err.Error())
		return
	}
	outcome, ok := v.(app.SearchOutcome)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Session error", "unexpected outcome type")
		return
	}
	if outcome.Status == app.StatusFailed {
		writeProblem(w, http.StatusBadGateway, "Search failed", outcome.Error)
		return
	}

	h.mergeEnrichment(r, sid, &outcome)

	writeJSON(w, http.StatusOK, searchResponse{
		Status:       outcome.Status,
		Requirements: req,
		Properties:   outcome.Properties,
		Summary:      outcome.Summary,
		TotalFound:   outcome.TotalFound,
	})
}

// mergeEnrichment waits for the geocode and POI fan-ins and folds whatever
// arrived into the ranked properties. Timeouts leave the affected entries
// without coordinates or POIs; that is a valid response.
func (h *Handlers) mergeEnrichment(r *http.Request, sid string, outcome *app.SearchOutcome) {
	n := outcome.EnrichCount
	if n <= 0 {
		return
	}
	ctx := r.Context()

	geos, err := h.Bus.AwaitCount(ctx, sid, session.KindGeocode, n, h.GeocodeWait)
	if err != nil && !errors.Is(err, session.ErrAwaitTimeout) {
		return
	}
	for _, g := range geos {
		o, ok := g.(app.GeocodeOutcome)
		if !ok || !o.OK || o.Index < 0 || o.Index >= len(outcome.Properties) {
			continue
		}
		lat, lon := o.Latitude, o.Longitude
		outcome.Properties[o.Index].Latitude = &lat
		outcome.Properties[o.Index].Longitude = &lon
	}

	pois, err := h.Bus.AwaitCount(ctx, sid, session.KindPOI, n, h.POIWait)
	if err != nil && !errors.Is(err, session.ErrAwaitTimeout) {
		return
	}
	for _, p := range pois {
		o, ok := p.(app.POIOutcome)
		if !ok || o.Index < 0 || o.Index >= len(outcome.Properties) {
			continue
		}
		outcome.Properties[o.Index].POIs = o.POIs
	}
}

type negotiationRequest struct {
	Address       string  `json:"address"`
	LeverageScore float64 `json:"leverage_score"`
	Context       string  `json:"context"`
}

func (h *Handlers) postNegotiation(w http.ResponseWriter, r *http.Request) {
	if h.Negotiator == nil {
		writeProblem(w, http.StatusServiceUnavailable, "Negotiation unavailable", "no negotiation provider configured")
		return
	}
	var req negotiationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "address is required")
		return
	}
	summary, err := h.Negotiator.Negotiate(r.Context(), req.Address, req.LeverageScore, req.Context)
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Negotiation failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}
