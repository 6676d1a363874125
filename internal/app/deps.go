package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/vhstube/backend/internal/auth"
	"github.com/vhstube/backend/internal/config"
	"github.com/vhstube/backend/internal/db"
	"github.com/vhstube/backend/internal/handlers"
	"github.com/vhstube/backend/internal/middleware"
	"github.com/vhstube/backend/internal/repositories"
	"github.com/vhstube/backend/internal/session"
	"github.com/vhstube/backend/internal/storage"
	"github.com/vhstube/backend/internal/upload"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup releases the session store's provider
// subscription.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(ctx context.Context) error, error) {
	videos := repositories.NewPostgresVideoRepository(pool)
	users := repositories.NewPostgresUserRepository(pool)

	store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure object store: %w", err)
	}

	local := auth.NewLocalProvider(users, nil)

	var provider session.Provider = local
	var google handlers.GoogleAuthenticator
	if cfg.GoogleOAuth.ClientID != "" {
		googleProvider := auth.NewGoogleProvider(cfg.GoogleOAuth)
		provider = googleProvider
		google = googleProvider
	}

	sessionStore := session.NewStore(provider)

	initCtx, cancel := context.WithTimeout(ctx, cfg.InitTimeout)
	defer cancel()
	if err := sessionStore.Initialize(initCtx); err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("initialize session store: %w", err)
	}

	workflow := &upload.Workflow{
		Storage:      store,
		Videos:       videos,
		Session:      sessionStore,
		ThumbnailURL: cfg.ThumbnailURL,
	}

	deps := handlers.Dependencies{
		Videos:  videos,
		Uploads: workflow,
		Session: sessionStore,
		Local:   local,
		Google:  google,
		Cookies: newCookieStore(cfg),
		Limiter: middleware.NewIPRateLimiter(cfg.UploadRatePerMinute, time.Minute, cfg.UploadRateBurst, 10*time.Minute),
	}

	cleanup := func(context.Context) error {
		sessionStore.Close()
		return nil
	}

	return deps, cleanup, nil
}

// newCookieStore builds the gorilla cookie store backing browser sessions.
// Keys come from configuration so sessions survive restarts; absent keys fall
// back to per-process random ones, which is fine for development.
func newCookieStore(cfg config.Config) *sessions.CookieStore {
	authKey := []byte(cfg.CookieAuthKey)
	if len(authKey) == 0 {
		authKey = securecookie.GenerateRandomKey(32)
	}

	var store *sessions.CookieStore
	if cfg.CookieEncryptionKey != "" {
		store = sessions.NewCookieStore(authKey, []byte(cfg.CookieEncryptionKey))
	} else {
		store = sessions.NewCookieStore(authKey)
	}

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
