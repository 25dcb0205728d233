package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sapic/core/internal/sapicerr"
)

// RemoteUserFetcher resolves the identity behind a bearer token, so
// AddAccount/UpdateAccount can derive a username and, for PATs, an
// expiry.
type RemoteUserFetcher interface {
	FetchUser(ctx context.Context, host string, kind AccountKind, token string) (username string, expiresAt *time.Time, err error)
}

// httpRemoteUserFetcher hits each provider's "who am I" endpoint with a
// single timeout-bound *http.Client wrapping one JSON request/response
// pair.
type httpRemoteUserFetcher struct {
	httpClient *http.Client
}

// NewHTTPRemoteUserFetcher returns the real network-backed RemoteUserFetcher.
func NewHTTPRemoteUserFetcher() RemoteUserFetcher {
	return &httpRemoteUserFetcher{httpClient: &http.Client{Timeout: 15 * time.Second}}
}

type githubUser struct {
	Login string `json:"login"`
}

type gitlabUser struct {
	Username string `json:"username"`
}

func (f *httpRemoteUserFetcher) FetchUser(ctx context.Context, host string, kind AccountKind, token string) (string, *time.Time, error) {
	const op = "profile.FetchUser"

	var url string
	switch kind {
	case KindGitHub:
		url = "https://" + host + "/user"
	case KindGitLab:
		url = "https://" + host + "/api/v4/user"
	default:
		return "", nil, sapicerr.New(sapicerr.InvalidInput, op, "unknown account kind")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, sapicerr.New(sapicerr.InvalidInput, op, fmt.Sprintf("authentication failed with status %d", resp.StatusCode))
	}

	var expiresAt *time.Time
	if raw := resp.Header.Get("github-authentication-token-expiration"); raw != "" {
		if t, err := time.Parse("2006-01-02 15:04:05 MST", raw); err == nil {
			expiresAt = &t
		}
	}

	switch kind {
	case KindGitHub:
		var u githubUser
		if err := json.Unmarshal(body, &u); err != nil {
			return "", nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
		}
		return u.Login, expiresAt, nil
	default:
		var u gitlabUser
		if err := json.Unmarshal(body, &u); err != nil {
			return "", nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
		}
		return u.Username, expiresAt, nil
	}
}
