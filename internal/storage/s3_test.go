package storage

import (
	"strings"
	"testing"
	"time"
)

func TestUploadKey(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		filename string
		want     string
	}{
		{name: "plain filename", filename: "clip.mp4", want: "videos/1717243200000_clip.mp4"},
		{name: "strips directories", filename: "/tmp/uploads/clip.mp4", want: "videos/1717243200000_clip.mp4"},
		{name: "empty filename", filename: "", want: "videos/1717243200000_upload"},
		{name: "whitespace filename", filename: "   ", want: "videos/1717243200000_upload"},
		{name: "bare slash", filename: "/", want: "videos/1717243200000_upload"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := UploadKey(now, tc.filename); got != tc.want {
				t.Fatalf("unexpected key: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestUploadKeyDistinctAcrossTime(t *testing.T) {
	first := UploadKey(time.UnixMilli(1000), "clip.mp4")
	second := UploadKey(time.UnixMilli(1001), "clip.mp4")

	if first == second {
		t.Fatalf("expected distinct keys, both were %q", first)
	}
	if !strings.HasPrefix(first, "videos/") || !strings.HasPrefix(second, "videos/") {
		t.Fatalf("expected videos/ prefix: %q %q", first, second)
	}
}
