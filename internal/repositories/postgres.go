package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vhstube/backend/internal/db"
	"github.com/vhstube/backend/internal/models"
)

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// List returns every video record in reverse chronological order.
func (r *PostgresVideoRepository) List(ctx context.Context) ([]models.VideoRecord, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, title, video_url, thumbnail_url, uploader_id, uploader_name, uploader_photo, created_at
        FROM videos
        ORDER BY created_at DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	records := []models.VideoRecord{}
	for rows.Next() {
		var rec models.VideoRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.VideoURL, &rec.ThumbnailURL, &rec.UploaderID, &rec.UploaderName, &rec.UploaderPhoto, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return records, nil
}

// Get fetches a single video record by id.
func (r *PostgresVideoRepository) Get(ctx context.Context, id string) (models.VideoRecord, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoRecord{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, title, video_url, thumbnail_url, uploader_id, uploader_name, uploader_photo, created_at
        FROM videos
        WHERE id = $1
    `, id)

	var rec models.VideoRecord
	if err := row.Scan(&rec.ID, &rec.Title, &rec.VideoURL, &rec.ThumbnailURL, &rec.UploaderID, &rec.UploaderName, &rec.UploaderPhoto, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoRecord{}, ErrNotFound
		}
		return models.VideoRecord{}, fmt.Errorf("select video by id: %w", err)
	}

	return rec, nil
}

// Create stores a new video record and returns the generated id.
func (r *PostgresVideoRepository) Create(ctx context.Context, record models.VideoRecord) (string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, title, video_url, thumbnail_url, uploader_id, uploader_name, uploader_photo, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, id, record.Title, record.VideoURL, record.ThumbnailURL, record.UploaderID, record.UploaderName, record.UploaderPhoto, record.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrConflict
		}
		return "", fmt.Errorf("insert video: %w", err)
	}

	return id, nil
}

// PostgresUserRepository provides PostgreSQL-backed persistence for local accounts.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, display_name, avatar_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, user.ID, user.Email, user.PasswordHash, user.DisplayName, user.AvatarURL, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, display_name, avatar_url, created_at, updated_at
        FROM users
        WHERE email = $1
    `, email)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by email: %w", err)
	}

	return user, nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
var _ UserRepository = (*PostgresUserRepository)(nil)
