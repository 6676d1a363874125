package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/vhstube/backend/internal/logging"
	"github.com/vhstube/backend/internal/models"
	"github.com/vhstube/backend/internal/upload"
	"github.com/vhstube/backend/internal/viewmodels"
)

const defaultMaxUploadBytes = 1 << 30 // 1 GiB

// VideoHandler serves the listing, detail, and upload endpoints.
type VideoHandler struct {
	Videos  VideoStore
	Uploads Uploader
	Session SessionState
	Limiter RateLimiter

	MaxUploadBytes int64
}

// Collection dispatches /api/v1/videos: GET lists, POST uploads.
func (h VideoHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.upload(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h VideoHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Videos == nil {
		logger.Error("video store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video service unavailable"})
		return
	}

	home := viewmodels.NewHome(h.Videos)
	if err := home.Activate(ctx); err != nil {
		logger.Error("list videos failed", "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "unable to load videos"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, listVideosResponse{Videos: toVideoPayloads(home.Videos())})
}

// Get handles GET /api/v1/videos/{id}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Videos == nil {
		logger.Error("video store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video service unavailable"})
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "video id is required"})
		return
	}

	watch := viewmodels.NewWatch(h.Videos)
	if err := watch.Load(ctx, id); err != nil {
		logger.Error("get video failed", "videoId", id, "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "unable to load video"})
		return
	}

	video, ok := watch.Video()
	if !ok {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "video not found"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, toVideoPayload(video))
}

func (h VideoHandler) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "upload") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many uploads, slow down"})
		return
	}

	if h.Uploads == nil || h.Session == nil {
		logger.Error("upload dependencies unavailable", "hasUploads", h.Uploads != nil, "hasSession", h.Session != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "upload service unavailable"})
		return
	}

	if _, ok := h.Session.Identity(); !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "sign in to upload videos"})
		return
	}

	maxBytes := h.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		logger.Warn("invalid upload payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid multipart payload"})
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "a title is required"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Warn("upload missing file", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "a video file is required"})
		return
	}
	defer file.Close()

	if h.Uploads.InProgress() {
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "an upload is already in progress"})
		return
	}

	id, err := h.Uploads.Run(ctx, title, upload.File{Name: header.Filename, Reader: file})
	if err != nil {
		if errors.Is(err, upload.ErrUploadInProgress) {
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "an upload is already in progress"})
			return
		}
		logger.Error("upload failed", "title", title, "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "upload failed"})
		return
	}
	if id == "" {
		// The workflow declined the run; the session ended between checks.
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "sign in to upload videos"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]string{"id": id})
}

type listVideosResponse struct {
	Videos []videoPayload `json:"videos"`
}

// videoPayload mirrors the persisted record layout.
type videoPayload struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	VideoURL      string    `json:"videoUrl"`
	ThumbnailURL  string    `json:"thumbnailUrl"`
	UploaderID    string    `json:"uploaderId"`
	UploaderName  string    `json:"uploaderName"`
	UploaderPhoto string    `json:"uploaderPhoto"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toVideoPayload(video models.VideoRecord) videoPayload {
	return videoPayload{
		ID:            video.ID,
		Title:         video.Title,
		VideoURL:      video.VideoURL,
		ThumbnailURL:  video.ThumbnailURL,
		UploaderID:    video.UploaderID,
		UploaderName:  video.UploaderName,
		UploaderPhoto: video.UploaderPhoto,
		CreatedAt:     video.CreatedAt,
	}
}

func toVideoPayloads(videos []models.VideoRecord) []videoPayload {
	out := make([]videoPayload, 0, len(videos))
	for _, video := range videos {
		out = append(out, toVideoPayload(video))
	}
	return out
}
