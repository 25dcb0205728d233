// Package profile implements the profile and account registry: a
// non-empty ordered list of profiles, each holding accounts bound to a
// git hosting provider, with secrets owned by the OS keyring rather than
// the registry file.
package profile

import (
	"fmt"
	"time"
)

// AccountKind identifies the hosting provider an account authenticates
// against.
type AccountKind int

const (
	KindGitHub AccountKind = iota
	KindGitLab
)

func (k AccountKind) String() string {
	if k == KindGitLab {
		return "gitlab"
	}
	return "github"
}

func (k AccountKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *AccountKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "github":
		*k = KindGitHub
	case "gitlab":
		*k = KindGitLab
	default:
		return fmt.Errorf("profile: unknown account kind %q", b)
	}
	return nil
}

// SessionKind distinguishes an OAuth-minted session from a stored PAT.
type SessionKind int

const (
	SessionOAuth SessionKind = iota
	SessionPAT
)

func (s SessionKind) String() string {
	if s == SessionPAT {
		return "pat"
	}
	return "oauth"
}

func (s SessionKind) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SessionKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pat":
		*s = SessionPAT
	case "oauth":
		*s = SessionOAuth
	default:
		return fmt.Errorf("profile: unknown session kind %q", b)
	}
	return nil
}

// AccountMetadata is the session-kind-specific detail carried alongside an
// account.
type AccountMetadata struct {
	SessionKind SessionKind `json:"session_kind"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
}

// Account is a tokenless identity bound to a profile; its secret lives
// only in the keyring.
type Account struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Host     string          `json:"host"`
	Kind     AccountKind     `json:"kind"`
	Metadata AccountMetadata `json:"metadata"`
}

// Profile is one registry entry: a named, ordered list of accounts.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default,omitempty"`
	Accounts  []Account `json:"accounts"`
}

// Warning is a non-fatal condition surfaced by a mutation that otherwise
// succeeded.
type Warning struct {
	ProfileID string
	AccountID string
	Message   string
}
