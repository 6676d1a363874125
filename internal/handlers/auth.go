package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/vhstube/backend/internal/auth"
	"github.com/vhstube/backend/internal/logging"
	"github.com/vhstube/backend/internal/models"
	"github.com/vhstube/backend/internal/repositories"
)

const (
	sessionCookieName = "vhstube_session"
	oauthStateKey     = "oauth_state"
)

// AuthHandler serves sign-up, password login, logout, the hosted Google OAuth
// flow, and the current-session probe.
type AuthHandler struct {
	Session SessionState
	Local   AccountProvider
	Google  GoogleAuthenticator
	Cookies *sessions.CookieStore
	Limiter RateLimiter
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type identityPayload struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

type sessionResponse struct {
	State    string           `json:"state"`
	Identity *identityPayload `json:"identity,omitempty"`
}

func toIdentityPayload(identity models.Identity) identityPayload {
	return identityPayload{
		ID:          identity.ID,
		DisplayName: identity.DisplayName,
		AvatarURL:   identity.AvatarURL,
	}
}

// CurrentSession handles GET /api/v1/session.
func (h AuthHandler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Session == nil {
		logging.FromContext(ctx).Error("session store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "session service unavailable"})
		return
	}

	snap := h.Session.Snapshot()
	resp := sessionResponse{State: snap.State.String()}
	if snap.Identity != nil {
		payload := toIdentityPayload(*snap.Identity)
		resp.Identity = &payload
	}

	respondJSON(ctx, w, http.StatusOK, resp)
}

// SignUp handles POST /api/v1/auth/signup.
func (h AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Local == nil {
		logger.Error("account provider unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "auth service unavailable"})
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	identity, err := h.Local.SignUp(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "an account with that email already exists"})
			return
		}
		logger.Warn("sign up rejected", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h.saveSessionCookie(w, r, identity)
	respondJSON(ctx, w, http.StatusCreated, toIdentityPayload(identity))
}

// Login handles POST /api/v1/auth/login.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many login attempts, slow down"})
		return
	}

	if h.Local == nil {
		logger.Error("account provider unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "auth service unavailable"})
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	identity, err := h.Local.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
			return
		}
		logger.Error("login failed", "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "login failed"})
		return
	}

	h.saveSessionCookie(w, r, identity)
	respondJSON(ctx, w, http.StatusOK, toIdentityPayload(identity))
}

// Logout handles POST /api/v1/auth/logout.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	h.clearSessionCookie(w, r)

	if h.Session != nil {
		if err := h.Session.SignOut(ctx); err != nil {
			logger.Error("sign out failed", "error", err)
			respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "sign out failed"})
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// GoogleLogin handles GET /auth/google/login by redirecting the browser to
// the consent page. The anti-forgery state rides in the session cookie.
func (h AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Google == nil {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "google sign-in is not configured"})
		return
	}

	state, err := auth.RandomState()
	if err != nil {
		logger.Error("generate oauth state", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to start sign-in"})
		return
	}

	if h.Cookies != nil {
		cookie, _ := h.Cookies.Get(r, sessionCookieName)
		cookie.Values[oauthStateKey] = state
		if err := cookie.Save(r, w); err != nil {
			logger.Error("persist oauth state", "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to start sign-in"})
			return
		}
	}

	http.Redirect(w, r, h.Google.LoginURL(state), http.StatusFound)
}

// GoogleCallback handles GET /auth/google/callback.
func (h AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Google == nil {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "google sign-in is not configured"})
		return
	}

	if errText := r.URL.Query().Get("error"); errText != "" {
		logger.Warn("google sign-in declined", "error", errText)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "sign-in was declined"})
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" || !h.stateMatches(r, state) {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "state mismatch"})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "missing authorization code"})
		return
	}

	identity, err := h.Google.Complete(ctx, code)
	if err != nil {
		logger.Error("google sign-in failed", "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "sign-in failed"})
		return
	}

	h.saveSessionCookie(w, r, identity)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h AuthHandler) stateMatches(r *http.Request, state string) bool {
	if h.Cookies == nil {
		return false
	}
	cookie, err := h.Cookies.Get(r, sessionCookieName)
	if err != nil {
		return false
	}
	stored, _ := cookie.Values[oauthStateKey].(string)
	return stored != "" && strings.TrimSpace(stored) == strings.TrimSpace(state)
}

func (h AuthHandler) saveSessionCookie(w http.ResponseWriter, r *http.Request, identity models.Identity) {
	if h.Cookies == nil {
		return
	}
	cookie, _ := h.Cookies.Get(r, sessionCookieName)
	delete(cookie.Values, oauthStateKey)
	cookie.Values["userId"] = identity.ID
	cookie.Values["displayName"] = identity.DisplayName
	if err := cookie.Save(r, w); err != nil {
		logging.FromContext(r.Context()).Error("save session cookie", "error", err)
	}
}

func (h AuthHandler) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	if h.Cookies == nil {
		return
	}
	cookie, _ := h.Cookies.Get(r, sessionCookieName)
	cookie.Options.MaxAge = -1
	cookie.Values = map[any]any{}
	if err := cookie.Save(r, w); err != nil {
		logging.FromContext(r.Context()).Error("clear session cookie", "error", err)
	}
}
