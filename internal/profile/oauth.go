package profile

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"os"

	"golang.org/x/oauth2"

	"github.com/sapic/core/internal/sapicerr"
)

// PKCEAuthenticator performs an OAuth authorization-code-with-PKCE flow
// and returns the minted access token.
type PKCEAuthenticator interface {
	Authorize(ctx context.Context, host string, kind AccountKind) (accessToken string, err error)
}

// hostOAuthConfig returns the oauth2.Config for a known provider host.
// Client IDs are read from the environment rather than compiled in, since
// this module never holds a real registered OAuth application's secret.
func hostOAuthConfig(host string, kind AccountKind) (*oauth2.Config, error) {
	switch kind {
	case KindGitHub:
		return &oauth2.Config{
			ClientID: os.Getenv("SAPIC_GITHUB_OAUTH_CLIENT_ID"),
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://" + host + "/login/oauth/authorize",
				TokenURL: "https://" + host + "/login/oauth/access_token",
			},
			Scopes: []string{"repo"},
		}, nil
	case KindGitLab:
		return &oauth2.Config{
			ClientID: os.Getenv("SAPIC_GITLAB_OAUTH_CLIENT_ID"),
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://" + host + "/oauth/authorize",
				TokenURL: "https://" + host + "/oauth/token",
			},
			Scopes: []string{"api"},
		}, nil
	default:
		return nil, sapicerr.New(sapicerr.InvalidInput, "profile.hostOAuthConfig", "unknown account kind")
	}
}

func newPKCEPair() (verifier, challenge string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	verifier = base64.RawURLEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}

// loopbackAuthenticator runs the PKCE redirect leg on a local loopback
// listener, the standard approach for a CLI/desktop OAuth client that
// cannot hold a client secret.
type loopbackAuthenticator struct {
	// openBrowser is invoked with the authorization URL the user must
	// visit.
	openBrowser func(url string) error
}

// NewLoopbackPKCEAuthenticator returns the real browser-driven
// PKCEAuthenticator.
func NewLoopbackPKCEAuthenticator(openBrowser func(url string) error) PKCEAuthenticator {
	return &loopbackAuthenticator{openBrowser: openBrowser}
}

func (a *loopbackAuthenticator) Authorize(ctx context.Context, host string, kind AccountKind) (string, error) {
	const op = "profile.Authorize"

	cfg, err := hostOAuthConfig(host, kind)
	if err != nil {
		return "", err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", sapicerr.Wrap(sapicerr.Io, op, err)
	}
	defer listener.Close()
	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/callback", listener.Addr().(*net.TCPAddr).Port)

	verifier, challenge, err := newPKCEPair()
	if err != nil {
		return "", sapicerr.Wrap(sapicerr.Io, op, err)
	}
	state := base64.RawURLEncoding.EncodeToString([]byte(uuidLike()))

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	srv := &http.Server{}
	srv.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			errCh <- sapicerr.New(sapicerr.InvalidInput, op, "oauth state mismatch")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			errCh <- sapicerr.New(sapicerr.InvalidInput, op, "oauth callback missing code")
			return
		}
		fmt.Fprintln(w, "Authentication complete, you may close this window.")
		codeCh <- code
	})
	go srv.Serve(listener)
	defer srv.Close()

	authURL := cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	if a.openBrowser != nil {
		if err := a.openBrowser(authURL); err != nil {
			return "", sapicerr.Wrap(sapicerr.Io, op, err)
		}
	}

	select {
	case <-ctx.Done():
		return "", sapicerr.Wrap(sapicerr.Canceled, op, ctx.Err())
	case err := <-errCh:
		return "", err
	case code := <-codeCh:
		tok, err := cfg.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", verifier))
		if err != nil {
			return "", sapicerr.Wrap(sapicerr.Io, op, err)
		}
		return tok.AccessToken, nil
	}
}

func uuidLike() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
