package models

import "time"

// Identity describes the signed-in user as reported by the auth provider.
// It lives in memory for the process lifetime and is cleared on sign-out.
type Identity struct {
	ID          string
	DisplayName string
	AvatarURL   string
}

// VideoRecord is the stored metadata for one uploaded video. The uploader
// fields are a snapshot of the Identity taken at upload time; records are
// never rewritten when a display name or avatar changes later.
type VideoRecord struct {
	ID            string
	Title         string
	VideoURL      string
	ThumbnailURL  string
	UploaderID    string
	UploaderName  string
	UploaderPhoto string
	CreatedAt     time.Time
}

// User is a local account backing the password-based auth provider.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	AvatarURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
