package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pulsepoint/pulsepoint/internal/i18n"
	"github.com/pulsepoint/pulsepoint/internal/model"
)

const sessionCookieName = "session"

// requireAuth is middleware that checks for a valid provider session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if authSess == nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		provider, err := h.store.GetProviderByID(authSess.ProviderID)
		if err != nil || provider == nil || !provider.Active {
			respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		ctx := model.ContextWithProvider(r.Context(), provider)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the provider has one of the allowed roles.
func requireRole(allowed ...model.ProviderRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provider := model.ProviderFromContext(r.Context())
			if provider == nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			for _, role := range allowed {
				if provider.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, http.StatusForbidden, "forbidden", "insufficient role")
		})
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Username    string             `json:"username"`
	DisplayName string             `json:"display_name"`
	Role        model.ProviderRole `json:"role"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	provider, err := h.store.GetProviderByUsername(req.Username)
	if err != nil {
		slog.Error("failed to get provider", "error", err)
		h.respondLoginError(w, r)
		return
	}
	if provider == nil || !provider.Active {
		h.respondLoginError(w, r)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(provider.PasswordHash), []byte(req.Password)); err != nil {
		h.respondLoginError(w, r)
		return
	}

	token, err := h.store.CreateAuthSession(provider.ID)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	respondJSON(w, http.StatusOK, loginResponse{
		Username:    provider.Username,
		DisplayName: provider.DisplayName,
		Role:        provider.Role,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondLoginError(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusUnauthorized, "unauthorized", appI18n.T(r.Context(), "LoginError"))
}
