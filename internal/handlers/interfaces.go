package handlers

import (
	"context"

	"github.com/vhstube/backend/internal/models"
	"github.com/vhstube/backend/internal/session"
	"github.com/vhstube/backend/internal/upload"
)

// VideoStore captures the read access used by the listing and detail endpoints.
type VideoStore interface {
	List(ctx context.Context) ([]models.VideoRecord, error)
	Get(ctx context.Context, id string) (models.VideoRecord, error)
}

// Uploader runs the two-phase publish workflow.
type Uploader interface {
	Run(ctx context.Context, title string, file upload.File) (string, error)
	InProgress() bool
}

// SessionState exposes the process session store to handlers.
type SessionState interface {
	Snapshot() session.Snapshot
	Identity() (models.Identity, bool)
	SignOut(ctx context.Context) error
}

// AccountProvider captures the local account operations used by the auth
// handlers.
type AccountProvider interface {
	SignUp(ctx context.Context, email, password, displayName string) (models.Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (models.Identity, error)
}

// GoogleAuthenticator captures the web half of the hosted OAuth flow.
type GoogleAuthenticator interface {
	LoginURL(state string) string
	Complete(ctx context.Context, code string) (models.Identity, error)
}
