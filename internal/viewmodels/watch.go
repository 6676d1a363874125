package viewmodels

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vhstube/backend/internal/models"
	"github.com/vhstube/backend/internal/repositories"
)

// VideoGetter is the read side of the video repository used by Watch.
type VideoGetter interface {
	Get(ctx context.Context, id string) (models.VideoRecord, error)
}

// Watch holds the detail page state for a single video id. Loading a new id
// re-fetches; an absent record leaves the view in its not-loaded state rather
// than a distinct error state.
type Watch struct {
	repo VideoGetter

	mu      sync.Mutex
	gen     uint64
	id      string
	pending int
	found   bool
	video   models.VideoRecord
}

// NewWatch constructs a detail view model over the provided repository.
func NewWatch(repo VideoGetter) *Watch {
	return &Watch{repo: repo}
}

// Load fetches the record for id. Repeating the current id once it has
// resolved is a no-op; a changed id supersedes any in-flight fetch, whose
// late response is discarded.
func (w *Watch) Load(ctx context.Context, id string) error {
	w.mu.Lock()
	if id == w.id && (w.found || w.pending > 0) {
		w.mu.Unlock()
		return nil
	}
	w.gen++
	gen := w.gen
	w.id = id
	w.found = false
	w.pending++
	w.mu.Unlock()

	video, err := w.repo.Get(ctx, id)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending--
	if gen != w.gen {
		return nil
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get video %s: %w", id, err)
	}
	w.found = true
	w.video = video
	return nil
}

// Loading reports whether the current id has not resolved yet.
func (w *Watch) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending > 0
}

// Video returns the loaded record, if the current id resolved to one.
func (w *Watch) Video() (models.VideoRecord, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.found {
		return models.VideoRecord{}, false
	}
	return w.video, true
}
