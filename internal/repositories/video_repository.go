package repositories

import (
	"context"

	"github.com/vhstube/backend/internal/models"
)

// VideoRepository exposes data access for uploaded videos. List returns all
// records newest first; an empty store yields an empty slice, not an error.
type VideoRepository interface {
	List(ctx context.Context) ([]models.VideoRecord, error)
	Get(ctx context.Context, id string) (models.VideoRecord, error)
	Create(ctx context.Context, record models.VideoRecord) (string, error)
}

// UserRepository persists the local accounts used by the password provider.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
}
