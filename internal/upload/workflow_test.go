package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/vhstube/backend/internal/models"
)

type storageStub struct {
	saves   int
	key     string
	payload []byte
	url     string
	err     error
	gate    chan struct{}
}

func (s *storageStub) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	s.saves++
	s.key = name
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.payload = data
	if s.url != "" {
		return s.url, nil
	}
	return "https://cdn.example.com/" + name, nil
}

type recordStoreStub struct {
	creates int
	record  models.VideoRecord
	id      string
	err     error
}

func (s *recordStoreStub) Create(_ context.Context, record models.VideoRecord) (string, error) {
	s.creates++
	s.record = record
	if s.err != nil {
		return "", s.err
	}
	if s.id != "" {
		return s.id, nil
	}
	return "vid-1", nil
}

type sessionStub struct {
	identity models.Identity
	signedIn bool
}

func (s sessionStub) Identity() (models.Identity, bool) {
	return s.identity, s.signedIn
}

func alice() sessionStub {
	return sessionStub{
		identity: models.Identity{ID: "u1", DisplayName: "Alice", AvatarURL: "https://example.com/alice.png"},
		signedIn: true,
	}
}

func TestWorkflowPublishesRecord(t *testing.T) {
	store := &storageStub{}
	records := &recordStoreStub{id: "vid-42"}
	now := time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)

	workflow := &Workflow{
		Storage:      store,
		Videos:       records,
		Session:      alice(),
		ThumbnailURL: "https://example.com/placeholder.png",
		NowFunc:      func() time.Time { return now },
	}

	id, err := workflow.Run(context.Background(), "My Clip", File{Name: "clip.mp4", Reader: bytes.NewReader([]byte("movie bytes"))})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if id != "vid-42" {
		t.Fatalf("unexpected id: %q", id)
	}

	if store.saves != 1 || records.creates != 1 {
		t.Fatalf("expected one save and one create, got %d and %d", store.saves, records.creates)
	}
	if string(store.payload) != "movie bytes" {
		t.Fatalf("stored payload differs from input: %q", store.payload)
	}
	if !strings.HasPrefix(store.key, "videos/") || !strings.HasSuffix(store.key, "_clip.mp4") {
		t.Fatalf("unexpected storage key: %q", store.key)
	}

	rec := records.record
	if rec.Title != "My Clip" || rec.VideoURL != "https://cdn.example.com/"+store.key {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.ThumbnailURL != "https://example.com/placeholder.png" {
		t.Fatalf("expected placeholder thumbnail, got %q", rec.ThumbnailURL)
	}
	if rec.UploaderID != "u1" || rec.UploaderName != "Alice" || rec.UploaderPhoto != "https://example.com/alice.png" {
		t.Fatalf("uploader snapshot missing: %+v", rec)
	}
	if !rec.CreatedAt.Equal(now) {
		t.Fatalf("unexpected createdAt: %v", rec.CreatedAt)
	}
	if rec.VideoURL == rec.ThumbnailURL {
		t.Fatal("video url must be distinct from the placeholder thumbnail")
	}
}

func TestWorkflowPhaseOneFailure(t *testing.T) {
	store := &storageStub{err: errors.New("bucket unavailable")}
	records := &recordStoreStub{}

	workflow := &Workflow{Storage: store, Videos: records, Session: alice()}

	_, err := workflow.Run(context.Background(), "My Clip", File{Name: "clip.mp4", Reader: strings.NewReader("x")})
	if err == nil {
		t.Fatal("expected error from failed binary upload")
	}
	if records.creates != 0 {
		t.Fatal("no record may be created when the binary upload fails")
	}
}

func TestWorkflowPhaseTwoFailure(t *testing.T) {
	store := &storageStub{}
	records := &recordStoreStub{err: errors.New("insert rejected")}

	workflow := &Workflow{Storage: store, Videos: records, Session: alice()}

	_, err := workflow.Run(context.Background(), "My Clip", File{Name: "clip.mp4", Reader: strings.NewReader("x")})
	if err == nil {
		t.Fatal("expected error from failed record creation")
	}
	if store.saves != 1 {
		t.Fatal("binary upload should have happened before the record write")
	}
	// The orphaned binary stays; there is no compensating delete to assert.
}

func TestWorkflowPreconditions(t *testing.T) {
	cases := []struct {
		name    string
		session sessionStub
		title   string
		file    File
	}{
		{"anonymous", sessionStub{}, "My Clip", File{Name: "clip.mp4", Reader: strings.NewReader("x")}},
		{"empty title", alice(), "   ", File{Name: "clip.mp4", Reader: strings.NewReader("x")}},
		{"missing file", alice(), "My Clip", File{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &storageStub{}
			records := &recordStoreStub{}
			workflow := &Workflow{Storage: store, Videos: records, Session: tc.session}

			id, err := workflow.Run(context.Background(), tc.title, tc.file)
			if err != nil {
				t.Fatalf("expected silent no-op, got %v", err)
			}
			if id != "" {
				t.Fatalf("expected empty id, got %q", id)
			}
			if store.saves != 0 || records.creates != 0 {
				t.Fatalf("backend must not be contacted: saves=%d creates=%d", store.saves, records.creates)
			}
		})
	}
}

func TestWorkflowRejectsConcurrentRun(t *testing.T) {
	gate := make(chan struct{})
	store := &storageStub{gate: gate}
	records := &recordStoreStub{}
	workflow := &Workflow{Storage: store, Videos: records, Session: alice()}

	firstDone := make(chan error, 1)
	go func() {
		_, err := workflow.Run(context.Background(), "First", File{Name: "a.mp4", Reader: strings.NewReader("a")})
		firstDone <- err
	}()

	deadline := time.Now().Add(time.Second)
	for !workflow.InProgress() {
		if time.Now().After(deadline) {
			t.Fatal("first run never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := workflow.Run(context.Background(), "Second", File{Name: "b.mp4", Reader: strings.NewReader("b")}); !errors.Is(err, ErrUploadInProgress) {
		t.Fatalf("expected ErrUploadInProgress, got %v", err)
	}

	close(gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if workflow.InProgress() {
		t.Fatal("in-progress flag should clear after the run completes")
	}
}
