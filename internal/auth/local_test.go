package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vhstube/backend/internal/models"
	"github.com/vhstube/backend/internal/repositories"
)

type userStoreStub struct {
	byEmail   map[string]models.User
	createErr error
}

func newUserStoreStub() *userStoreStub {
	return &userStoreStub{byEmail: make(map[string]models.User)}
}

func (s *userStoreStub) Create(_ context.Context, user models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return repositories.ErrConflict
	}
	s.byEmail[user.Email] = user
	return nil
}

func (s *userStoreStub) FindByEmail(_ context.Context, email string) (models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func TestLocalProviderSignUpAndSignIn(t *testing.T) {
	users := newUserStoreStub()
	provider := NewLocalProvider(users, nil)
	provider.NowFunc = func() time.Time {
		return time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	}

	identity, err := provider.SignUp(context.Background(), "Alice@Example.com", "correct horse", "Alice")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if identity.ID == "" || identity.DisplayName != "Alice" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if _, ok := users.byEmail["alice@example.com"]; !ok {
		t.Fatal("expected account stored under normalized email")
	}

	signedIn, err := provider.SignInWithPassword(context.Background(), "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if signedIn.ID != identity.ID {
		t.Fatalf("expected same account, got %q and %q", signedIn.ID, identity.ID)
	}
}

func TestLocalProviderInvalidCredentials(t *testing.T) {
	users := newUserStoreStub()
	provider := NewLocalProvider(users, nil)

	if _, err := provider.SignUp(context.Background(), "bob@example.com", "long enough", "Bob"); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	cases := []struct{ email, password string }{
		{"bob@example.com", "wrong password"},
		{"nobody@example.com", "long enough"},
		{"", "long enough"},
		{"bob@example.com", ""},
	}
	for _, tc := range cases {
		if _, err := provider.SignInWithPassword(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("email=%q password=%q: expected ErrInvalidCredentials, got %v", tc.email, tc.password, err)
		}
	}
}

func TestLocalProviderSignUpValidation(t *testing.T) {
	provider := NewLocalProvider(newUserStoreStub(), nil)

	if _, err := provider.SignUp(context.Background(), "not-an-email", "long enough", ""); err == nil {
		t.Fatal("expected error for invalid email")
	}
	if _, err := provider.SignUp(context.Background(), "carol@example.com", "short", ""); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestLocalProviderSignUpDuplicate(t *testing.T) {
	provider := NewLocalProvider(newUserStoreStub(), nil)

	if _, err := provider.SignUp(context.Background(), "dan@example.com", "long enough", "Dan"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if _, err := provider.SignUp(context.Background(), "dan@example.com", "long enough", "Dan"); !errors.Is(err, repositories.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestLocalProviderInteractiveSignIn(t *testing.T) {
	provider := NewLocalProvider(newUserStoreStub(), nil)
	if _, err := provider.SignIn(context.Background()); !errors.Is(err, ErrNoCredentialSource) {
		t.Fatalf("expected ErrNoCredentialSource, got %v", err)
	}

	users := newUserStoreStub()
	provider = NewLocalProvider(users, func(context.Context) (string, string, error) {
		return "erin@example.com", "long enough", nil
	})
	if _, err := provider.SignUp(context.Background(), "erin@example.com", "long enough", "Erin"); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	identity, err := provider.SignIn(context.Background())
	if err != nil {
		t.Fatalf("interactive sign in: %v", err)
	}
	if identity.DisplayName != "Erin" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestNotifierSubscribeFiresImmediately(t *testing.T) {
	users := newUserStoreStub()
	provider := NewLocalProvider(users, nil)

	var calls []*models.Identity
	unsubscribe := provider.Subscribe(func(identity *models.Identity) {
		calls = append(calls, identity)
	})
	defer unsubscribe()

	if len(calls) != 1 || calls[0] != nil {
		t.Fatalf("expected one immediate nil notification, got %v", calls)
	}

	if _, err := provider.SignUp(context.Background(), "faye@example.com", "long enough", "Faye"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if len(calls) != 2 || calls[1] == nil || calls[1].DisplayName != "Faye" {
		t.Fatalf("expected sign-up notification, got %v", calls)
	}

	if err := provider.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if len(calls) != 3 || calls[2] != nil {
		t.Fatalf("expected sign-out notification, got %v", calls)
	}

	unsubscribe()
	_ = provider.SignOut(context.Background())
	if len(calls) != 3 {
		t.Fatal("expected no notifications after unsubscribe")
	}
}
