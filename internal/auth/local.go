package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vhstube/backend/internal/models"
	"github.com/vhstube/backend/internal/repositories"
)

var (
	// ErrInvalidCredentials indicates the email/password pair did not match
	// an account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoCredentialSource indicates an interactive sign-in was requested
	// without a configured credential prompt.
	ErrNoCredentialSource = errors.New("no credential source configured")
)

// UserStore captures the persistence the local provider needs.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// CredentialFunc supplies credentials for an interactive sign-in, typically
// by prompting the operator.
type CredentialFunc func(ctx context.Context) (email, password string, err error)

// LocalProvider authenticates against bcrypt-hashed accounts in the user
// repository. It stands in for the hosted OAuth provider in development and
// tests.
type LocalProvider struct {
	users       UserStore
	credentials CredentialFunc
	NowFunc     func() time.Time

	*notifier
}

// NewLocalProvider constructs a local provider. The credential source may be
// nil when only SignInWithPassword is used (the web login path).
func NewLocalProvider(users UserStore, credentials CredentialFunc) *LocalProvider {
	if users == nil {
		panic("auth: user store must not be nil")
	}
	return &LocalProvider{
		users:       users,
		credentials: credentials,
		notifier:    newNotifier(),
	}
}

// SignIn runs the interactive flow: it asks the credential source for an
// email/password pair and verifies it.
func (p *LocalProvider) SignIn(ctx context.Context) (models.Identity, error) {
	if p.credentials == nil {
		return models.Identity{}, ErrNoCredentialSource
	}
	email, password, err := p.credentials(ctx)
	if err != nil {
		return models.Identity{}, fmt.Errorf("collect credentials: %w", err)
	}
	return p.SignInWithPassword(ctx, email, password)
}

// SignInWithPassword verifies the pair against the user repository and, on
// success, notifies subscribers of the new identity.
func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (models.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return models.Identity{}, ErrInvalidCredentials
	}

	user, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Identity{}, ErrInvalidCredentials
		}
		return models.Identity{}, fmt.Errorf("look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.Identity{}, ErrInvalidCredentials
	}

	identity := models.Identity{ID: user.ID, DisplayName: user.DisplayName, AvatarURL: user.AvatarURL}
	p.set(&identity)
	return identity, nil
}

// SignUp registers a new account and signs it in.
func (p *LocalProvider) SignUp(ctx context.Context, email, password, displayName string) (models.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return models.Identity{}, errors.New("email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.Identity{}, fmt.Errorf("invalid email address: %w", err)
	}
	if len(password) < 8 {
		return models.Identity{}, errors.New("password must be at least 8 characters")
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = email[:strings.Index(email, "@")]
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	now := p.now()
	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hashed),
		DisplayName:  displayName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := p.users.Create(ctx, user); err != nil {
		return models.Identity{}, err
	}

	identity := models.Identity{ID: user.ID, DisplayName: user.DisplayName}
	p.set(&identity)
	return identity, nil
}

// SignOut clears the current identity and notifies subscribers.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.set(nil)
	return nil
}

func (p *LocalProvider) now() time.Time {
	if p.NowFunc != nil {
		return p.NowFunc()
	}
	return time.Now().UTC()
}
