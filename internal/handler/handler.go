package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pulsepoint/pulsepoint/internal/assessment"
	appI18n "github.com/pulsepoint/pulsepoint/internal/i18n"
	"github.com/pulsepoint/pulsepoint/internal/instrument"
	"github.com/pulsepoint/pulsepoint/internal/model"
	"github.com/pulsepoint/pulsepoint/internal/share"
	"github.com/pulsepoint/pulsepoint/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	manager *assessment.Manager
	shares  *share.Engine
	config  model.Config
}

// New creates a new Handler.
func New(s *store.Store, m *assessment.Manager, e *share.Engine, cfg model.Config) *Handler {
	return &Handler{store: s, manager: m, shares: e, config: cfg}
}

// Routes registers all HTTP routes. The share resolution endpoint is the
// only route reachable without a provider session.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/shared/{linkID}", h.handleResolveShare)

	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/api/instruments", h.handleListInstruments)
		r.Post("/api/clients", h.handleCreateClient)
		r.Get("/api/clients", h.handleListClients)
		r.Get("/api/clients/{clientID}/assessments", h.handleListClientAssessments)
		r.Get("/api/clients/{clientID}/stats", h.handleClientStats)
		r.Post("/api/assessments", h.handleCompleteAssessment)
		r.Get("/api/assessments/{assessmentID}", h.handleGetAssessment)
		r.Post("/api/shares", h.handleCreateShare)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireRole(model.RoleAdmin))
			r.Get("/providers", h.handleListProviders)
			r.Post("/providers", h.handleCreateProvider)
			r.Post("/providers/{providerID}/toggle", h.handleToggleProviderActive)
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"code": code, "error": message})
}

// instrumentInfo is the catalog entry exposed to the provider UI.
type instrumentInfo struct {
	Type     model.AssessmentType `json:"assessment_type"`
	Name     string               `json:"name"`
	NumItems int                  `json:"num_items"`
	MaxScore int                  `json:"max_score"`
}

func (h *Handler) handleListInstruments(w http.ResponseWriter, _ *http.Request) {
	var out []instrumentInfo
	for _, inst := range instrument.List() {
		out = append(out, instrumentInfo{
			Type:     inst.Type,
			Name:     inst.Name,
			NumItems: inst.NumItems,
			MaxScore: inst.MaxScore,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

type completeAssessmentRequest struct {
	ClientID string               `json:"client_id"`
	Type     model.AssessmentType `json:"assessment_type"`
	Answers  model.AnswerSet      `json:"answers"`
}

func (h *Handler) handleCompleteAssessment(w http.ResponseWriter, r *http.Request) {
	var req completeAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	rec, err := h.manager.Complete(r.Context(), req.ClientID, req.Type, req.Answers)
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, rec)
	case errors.Is(err, assessment.ErrValidation), errors.Is(err, instrument.ErrUnknown):
		respondError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, assessment.ErrClientNotFound):
		respondError(w, http.StatusNotFound, "client_not_found", err.Error())
	default:
		slog.Error("complete assessment failed", "client_id", req.ClientID, "error", err)
		respondError(w, http.StatusInternalServerError, "persistence", "assessment could not be saved")
	}
}

func (h *Handler) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "assessmentID")
	rec, err := h.store.GetAssessment(id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "not_found", "assessment not found")
		return
	}
	if err != nil {
		slog.Error("get assessment failed", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "persistence", "assessment could not be loaded")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

type createClientRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "validation", "client name required")
		return
	}
	c := model.Client{ID: req.ID, Name: req.Name, CreatedAt: time.Now()}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := h.store.CreateClient(c); err != nil {
		slog.Error("create client failed", "error", err)
		respondError(w, http.StatusInternalServerError, "persistence", "client could not be saved")
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleListClients(w http.ResponseWriter, _ *http.Request) {
	clients, err := h.store.ListClients()
	if err != nil {
		slog.Error("list clients failed", "error", err)
		respondError(w, http.StatusInternalServerError, "persistence", "clients could not be listed")
		return
	}
	respondJSON(w, http.StatusOK, clients)
}

func (h *Handler) handleListClientAssessments(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	c, err := h.store.GetClient(clientID)
	if err != nil {
		slog.Error("get client failed", "client_id", clientID, "error", err)
		respondError(w, http.StatusInternalServerError, "persistence", "client could not be loaded")
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "client_not_found", "client not found")
		return
	}
	results, err := h.store.ListAssessmentsByClient(clientID)
	if err != nil {
		slog.Error("list assessments failed", "client_id", clientID, "error", err)
		respondError(w, http.StatusInternalServerError, "persistence", "assessments could not be listed")
		return
	}
	if results == nil {
		results = []model.AssessmentResult{}
	}
	respondJSON(w, http.StatusOK, results)
}

func (h *Handler) handleClientStats(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	c, err := h.store.GetClient(clientID)
	if err != nil {
		slog.Error("get client failed", "client_id", clientID, "error", err)
		respondError(w, http.StatusInternalServerError, "persistence", "client could not be loaded")
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "client_not_found", "client not found")
		return
	}
	stats, err := h.store.ClientStats(clientID)
	if err != nil {
		slog.Error("client stats failed", "client_id", clientID, "error", err)
		respondError(w, http.StatusInternalServerError, "persistence", "stats could not be computed")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type createShareRequest struct {
	Type              model.AssessmentType `json:"assessment_type"`
	ClientDisplayName string               `json:"client_display_name"`
	Options           model.ShareOptions   `json:"options"`
}

type createShareResponse struct {
	model.ShareLink
	Path string `json:"path"`
}

func (h *Handler) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	link, err := h.shares.CreateLink(req.Type, req.ClientDisplayName, req.Options)
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, createShareResponse{ShareLink: link, Path: "/shared/" + link.ID})
	case errors.Is(err, instrument.ErrUnknown), errors.Is(err, share.ErrInvalidExpiration):
		respondError(w, http.StatusBadRequest, "validation", err.Error())
	default:
		slog.Error("create share link failed", "type", req.Type, "error", err)
		respondError(w, http.StatusInternalServerError, "persistence", "share link could not be saved")
	}
}

// resolveShareResponse is the Accessor payload plus localized viewer
// messaging. This endpoint crosses the trust boundary: errors carry no
// detail beyond the not-found/expired distinction.
type resolveShareResponse struct {
	model.Accessor
	Message string `json:"message"`
	Expiry  string `json:"expiry"`
}

func (h *Handler) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "linkID")
	now := time.Now()

	acc, err := h.shares.ResolveLink(linkID, now)
	switch {
	case err == nil:
		// Round up so a fresh 7-day link reads as 7 days, not 6.
		days := int((acc.ExpiresAt.Sub(now) + 24*time.Hour - 1) / (24 * time.Hour))
		if days < 1 {
			days = 1
		}
		respondJSON(w, http.StatusOK, resolveShareResponse{
			Accessor: acc,
			Message:  appI18n.T(r.Context(), "ShareReady"),
			Expiry:   appI18n.Tp(r.Context(), "DaysRemaining", days),
		})
	case errors.Is(err, share.ErrLinkNotFound):
		respondError(w, http.StatusNotFound, "not_found", appI18n.T(r.Context(), "ShareNotFound"))
	case errors.Is(err, share.ErrLinkExpired):
		respondError(w, http.StatusGone, "expired", appI18n.T(r.Context(), "ShareExpired"))
	default:
		slog.Error("resolve share link failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", appI18n.T(r.Context(), "ShareNotFound"))
	}
}
