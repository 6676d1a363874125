package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/vhstube/backend/internal/config"
	"github.com/vhstube/backend/internal/models"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProvider signs users in with Google's OAuth2 authorization-code flow.
// Web callers drive it through LoginURL and Complete; interactive callers use
// SignIn, which serves the redirect on a loopback listener.
type GoogleProvider struct {
	config *oauth2.Config

	// Prompt receives the consent URL during an interactive sign-in. The
	// default writes it to stderr for the operator to open.
	Prompt func(url string)

	*notifier
}

// NewGoogleProvider constructs a provider from the configured credentials.
func NewGoogleProvider(cfg config.GoogleOAuthConfig) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.profile",
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: google.Endpoint,
		},
		notifier: newNotifier(),
	}
}

// LoginURL returns the consent page URL bound to the provided CSRF state.
func (p *GoogleProvider) LoginURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Complete exchanges the authorization code, resolves the user's profile, and
// notifies subscribers of the new identity.
func (p *GoogleProvider) Complete(ctx context.Context, code string) (models.Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return models.Identity{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	identity, err := p.fetchIdentity(ctx, token)
	if err != nil {
		return models.Identity{}, err
	}

	p.set(&identity)
	return identity, nil
}

func (p *GoogleProvider) fetchIdentity(ctx context.Context, token *oauth2.Token) (models.Identity, error) {
	client := p.config.Client(ctx, token)
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return models.Identity{}, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Identity{}, fmt.Errorf("fetch user info: unexpected status %d", resp.StatusCode)
	}

	var info struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return models.Identity{}, fmt.Errorf("decode user info: %w", err)
	}

	return models.Identity{ID: info.ID, DisplayName: info.Name, AvatarURL: info.Picture}, nil
}

type callbackResult struct {
	code string
	err  error
}

// SignIn runs the interactive flow: it announces the consent URL, serves the
// OAuth redirect on the address named by the configured redirect URL, and
// waits for the authorization code.
func (p *GoogleProvider) SignIn(ctx context.Context) (models.Identity, error) {
	state, err := randomState()
	if err != nil {
		return models.Identity{}, err
	}

	redirect, err := url.Parse(p.config.RedirectURL)
	if err != nil {
		return models.Identity{}, fmt.Errorf("parse redirect url: %w", err)
	}
	callbackPath := redirect.Path
	if callbackPath == "" {
		callbackPath = "/"
	}

	result := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			send(result, callbackResult{err: errors.New("state mismatch")})
			http.Error(w, "invalid state parameter", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			send(result, callbackResult{err: fmt.Errorf("authorization failed: %s", r.URL.Query().Get("error"))})
			http.Error(w, "authorization failed", http.StatusBadRequest)
			return
		}
		send(result, callbackResult{code: code})
		fmt.Fprintln(w, "Signed in. You can close this tab.")
	})

	srv := &http.Server{Addr: redirect.Host, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			send(result, callbackResult{err: fmt.Errorf("callback listener: %w", err)})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	p.prompt(p.LoginURL(state))

	select {
	case <-ctx.Done():
		return models.Identity{}, ctx.Err()
	case res := <-result:
		if res.err != nil {
			return models.Identity{}, res.err
		}
		return p.Complete(ctx, res.code)
	}
}

// SignOut clears the current identity and notifies subscribers.
func (p *GoogleProvider) SignOut(ctx context.Context) error {
	p.set(nil)
	return nil
}

func (p *GoogleProvider) prompt(consentURL string) {
	if p.Prompt != nil {
		p.Prompt(consentURL)
		return
	}
	fmt.Fprintf(os.Stderr, "Open the following URL in your browser to sign in:\n%s\n", consentURL)
}

func send(ch chan callbackResult, res callbackResult) {
	select {
	case ch <- res:
	default:
	}
}

// RandomState produces a CSRF state token for the web login flow.
func RandomState() (string, error) {
	return randomState()
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
