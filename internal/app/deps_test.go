package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vhstube/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func TestBuildDependencies(t *testing.T) {
	cfg := config.Config{
		ThumbnailURL: config.DefaultThumbnailURL,
		InitTimeout:  5 * time.Second,
		ObjectStore: config.ObjectStoreConfig{
			Bucket:   "test-bucket",
			Endpoint: "http://localhost:9000",
			Region:   "us-east-1",
		},
		UploadRatePerMinute: 6,
		UploadRateBurst:     2,
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, cleanup, err := buildDependencies(context.Background(), fakePool{}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleanup == nil {
		t.Fatal("expected cleanup function")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = cleanup(ctx)
	}()

	if deps.Videos == nil {
		t.Fatal("expected video repository to be configured")
	}
	if deps.Uploads == nil {
		t.Fatal("expected upload workflow to be configured")
	}
	if deps.Session == nil {
		t.Fatal("expected session store to be configured")
	}
	if deps.Local == nil {
		t.Fatal("expected local account provider to be configured")
	}
	if deps.Google != nil {
		t.Fatal("expected google provider to be absent without credentials")
	}
	if deps.Cookies == nil {
		t.Fatal("expected cookie store to be configured")
	}
	if deps.Limiter == nil {
		t.Fatal("expected rate limiter to be configured")
	}

	if snap := deps.Session.Snapshot(); snap.State.String() != "anonymous" {
		t.Fatalf("expected anonymous session after init, got %s", snap.State)
	}
}

func TestBuildDependenciesGoogleProvider(t *testing.T) {
	cfg := config.Config{
		ThumbnailURL: config.DefaultThumbnailURL,
		InitTimeout:  5 * time.Second,
		ObjectStore: config.ObjectStoreConfig{
			Bucket:   "test-bucket",
			Endpoint: "http://localhost:9000",
			Region:   "us-east-1",
		},
		GoogleOAuth: config.GoogleOAuthConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:8080/auth/google/callback",
		},
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, cleanup, err := buildDependencies(context.Background(), fakePool{}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = cleanup(ctx)
	}()

	if deps.Google == nil {
		t.Fatal("expected google provider to be configured")
	}
}
