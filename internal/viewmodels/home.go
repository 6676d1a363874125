package viewmodels

import (
	"context"
	"fmt"
	"sync"

	"github.com/vhstube/backend/internal/models"
)

// VideoLister is the read side of the video repository used by Home.
type VideoLister interface {
	List(ctx context.Context) ([]models.VideoRecord, error)
}

// Home holds the listing page state. Activate fetches once per activation; it
// never refreshes on its own, so new uploads by others appear only on the
// next activation.
type Home struct {
	repo VideoLister

	mu      sync.Mutex
	gen     uint64
	loaded  bool
	pending int
	videos  []models.VideoRecord
}

// NewHome constructs a listing view model over the provided repository.
func NewHome(repo VideoLister) *Home {
	return &Home{repo: repo}
}

// Activate fetches the listing. Each call supersedes any still-running fetch:
// a response belonging to an older activation is discarded rather than
// clobbering newer state.
func (h *Home) Activate(ctx context.Context) error {
	h.mu.Lock()
	h.gen++
	gen := h.gen
	h.pending++
	h.mu.Unlock()

	videos, err := h.repo.List(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending--
	if gen != h.gen {
		return nil
	}
	if err != nil {
		return fmt.Errorf("list videos: %w", err)
	}
	h.loaded = true
	h.videos = videos
	return nil
}

// Loading reports whether the current activation has not yet resolved.
func (h *Home) Loading() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending > 0 || !h.loaded
}

// Videos returns the most recently fetched listing.
func (h *Home) Videos() []models.VideoRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.VideoRecord, len(h.videos))
	copy(out, h.videos)
	return out
}
