package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-chi/chi/v5"
	"github.com/pulsepoint/pulsepoint/internal/model"
)

// providerInfo is the provider record exposed to admins. Password hashes
// never leave the server.
type providerInfo struct {
	ID          int64              `json:"id"`
	Username    string             `json:"username"`
	DisplayName string             `json:"display_name"`
	Role        model.ProviderRole `json:"role"`
	Active      bool               `json:"active"`
}

func (h *Handler) handleListProviders(w http.ResponseWriter, _ *http.Request) {
	providers, err := h.store.ListProviders()
	if err != nil {
		slog.Error("failed to list providers", "error", err)
		respondError(w, http.StatusInternalServerError, "persistence", "providers could not be listed")
		return
	}
	out := make([]providerInfo, 0, len(providers))
	for _, p := range providers {
		out = append(out, providerInfo{
			ID:          p.ID,
			Username:    p.Username,
			DisplayName: p.DisplayName,
			Role:        p.Role,
			Active:      p.Active,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

type createProviderRequest struct {
	Username    string             `json:"username"`
	DisplayName string             `json:"display_name"`
	Password    string             `json:"password"`
	Role        model.ProviderRole `json:"role"`
}

func (h *Handler) handleCreateProvider(w http.ResponseWriter, r *http.Request) {
	var req createProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "validation", "username and password required")
		return
	}
	if req.Role == "" {
		req.Role = model.RoleClinician
	}
	if req.Role != model.RoleClinician && req.Role != model.RoleAdmin {
		respondError(w, http.StatusBadRequest, "validation", "unknown role")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	id, err := h.store.CreateProvider(model.Provider{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	})
	if err != nil {
		slog.Error("failed to create provider", "error", err)
		respondError(w, http.StatusInternalServerError, "persistence", "provider could not be saved")
		return
	}

	respondJSON(w, http.StatusCreated, providerInfo{
		ID:          id,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Active:      true,
	})
}

func (h *Handler) handleToggleProviderActive(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "providerID")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid provider ID")
		return
	}

	if err := h.store.ToggleProviderActive(id); err != nil {
		slog.Error("failed to toggle provider active", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "persistence", "provider could not be updated")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
