package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vhstube/backend/internal/logging"
	"github.com/vhstube/backend/internal/models"
	"github.com/vhstube/backend/internal/storage"
)

// ErrUploadInProgress signals that a two-phase run is already active.
var ErrUploadInProgress = errors.New("upload already in progress")

// BinaryStorage persists video payloads and returns their public reference.
type BinaryStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// RecordCreator writes video metadata records.
type RecordCreator interface {
	Create(ctx context.Context, record models.VideoRecord) (string, error)
}

// SessionReader reports the identity that gates uploads.
type SessionReader interface {
	Identity() (models.Identity, bool)
}

// File couples a payload stream with its original filename.
type File struct {
	Name   string
	Reader io.Reader
}

// Workflow coordinates the two-phase publish sequence. The binary must be
// fully stored before the metadata record referencing it is written, so a
// published record never points at a partial upload.
type Workflow struct {
	Storage      BinaryStorage
	Videos       RecordCreator
	Session      SessionReader
	ThumbnailURL string
	NowFunc      func() time.Time

	inProgress atomic.Bool
}

// InProgress reports whether a run is active so callers can disable
// re-submission.
func (w *Workflow) InProgress() bool {
	return w.inProgress.Load()
}

// Run publishes a video. When the preconditions are not met (empty title,
// missing file, or no signed-in identity) it returns an empty id and a nil
// error without contacting the backend. A phase-one failure leaves no record
// behind; a phase-two failure leaves the stored binary as an unreferenced
// orphan with no compensating delete.
func (w *Workflow) Run(ctx context.Context, title string, file File) (string, error) {
	title = strings.TrimSpace(title)
	identity, signedIn := w.Session.Identity()
	if !signedIn || title == "" || file.Reader == nil {
		return "", nil
	}

	if !w.inProgress.CompareAndSwap(false, true) {
		return "", ErrUploadInProgress
	}
	defer w.inProgress.Store(false)

	logger := logging.FromContext(ctx)
	now := w.now()

	key := storage.UploadKey(now, file.Name)
	videoURL, err := w.Storage.Save(ctx, key, file.Reader)
	if err != nil {
		logger.Error("binary upload failed", "key", key, "error", err)
		return "", fmt.Errorf("upload binary: %w", err)
	}

	record := models.VideoRecord{
		Title:         title,
		VideoURL:      videoURL,
		ThumbnailURL:  w.ThumbnailURL,
		UploaderID:    identity.ID,
		UploaderName:  identity.DisplayName,
		UploaderPhoto: identity.AvatarURL,
		CreatedAt:     now,
	}

	id, err := w.Videos.Create(ctx, record)
	if err != nil {
		// The stored binary stays behind as an accepted orphan.
		logger.Error("record creation failed after binary upload", "videoUrl", videoURL, "error", err)
		return "", fmt.Errorf("create video record: %w", err)
	}

	logger.Info("video published", "id", id, "title", title, "uploaderId", identity.ID)
	return id, nil
}

func (w *Workflow) now() time.Time {
	if w.NowFunc != nil {
		return w.NowFunc()
	}
	return time.Now().UTC()
}
