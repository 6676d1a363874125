package handlers

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Videos  VideoStore
	Uploads Uploader
	Session SessionState
	Local   AccountProvider
	Google  GoogleAuthenticator
	Cookies *sessions.CookieStore
	Limiter RateLimiter

	MaxUploadBytes int64
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{
		Session: deps.Session,
		Local:   deps.Local,
		Google:  deps.Google,
		Cookies: deps.Cookies,
		Limiter: deps.Limiter,
	}
	videos := VideoHandler{
		Videos:         deps.Videos,
		Uploads:        deps.Uploads,
		Session:        deps.Session,
		Limiter:        deps.Limiter,
		MaxUploadBytes: deps.MaxUploadBytes,
	}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/session", auth.CurrentSession)
	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/logout", auth.Logout)
	mux.HandleFunc("/auth/google/login", auth.GoogleLogin)
	mux.HandleFunc("/auth/google/callback", auth.GoogleCallback)
	mux.HandleFunc("/api/v1/videos", videos.Collection)
	mux.HandleFunc("/api/v1/videos/{id}", videos.Get)
}
