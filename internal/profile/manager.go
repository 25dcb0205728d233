package profile

import (
	"sync"

	"github.com/sapic/core/internal/sapicerr"
)

// Manager owns the profiles.json registry, the currently active profile
// (at most one per process), and the collaborators mutations need: a
// SecretStore, a RemoteUserFetcher, and a PKCEAuthenticator. It is one
// façade struct guarding a mutable index behind a RWMutex.
type Manager struct {
	mu       sync.RWMutex
	path     string
	reg      *registry
	activeID string

	secrets SecretStore
	users   RemoteUserFetcher
	pkce    PKCEAuthenticator
}

// NewManager loads (or synthesizes) the registry at path and returns a
// Manager with no active profile yet.
func NewManager(path string, secrets SecretStore, users RemoteUserFetcher, pkce PKCEAuthenticator) (*Manager, error) {
	reg, err := loadOrInitRegistry(path)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, reg: reg, secrets: secrets, users: users, pkce: pkce}, nil
}

// Profiles returns a snapshot of every registry entry in order.
func (m *Manager) Profiles() []Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Profile, len(m.reg.Profiles))
	copy(out, m.reg.Profiles)
	return out
}

// Activate sets the active profile for this process.
func (m *Manager) Activate(id string) error {
	const op = "profile.Activate"
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOf(id) < 0 {
		return sapicerr.New(sapicerr.NotFound, op, "unknown profile id: "+id)
	}
	m.activeID = id
	return nil
}

// ActiveProfile returns the currently active profile, or FailedPrecondition
// if none has been activated yet.
func (m *Manager) ActiveProfile() (*Profile, error) {
	const op = "profile.ActiveProfile"
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.activeID == "" {
		return nil, sapicerr.New(sapicerr.FailedPrecondition, op, "no active profile")
	}
	idx := m.indexOf(m.activeID)
	if idx < 0 {
		return nil, sapicerr.New(sapicerr.FailedPrecondition, op, "active profile no longer exists")
	}
	p := m.reg.Profiles[idx]
	return &p, nil
}

// indexOf returns the index of the profile with the given id, or -1.
// Callers must hold m.mu.
func (m *Manager) indexOf(id string) int {
	for i, p := range m.reg.Profiles {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Session is an in-memory handle that can mint a secret from the keyring
// to authenticate a VCS call; it holds no secret itself until Secret is
// called.
type Session struct {
	Account Account
	secrets SecretStore
}

// Secret fetches the account's bearer token from the keyring.
func (s Session) Secret() (string, error) {
	const op = "profile.Session.Secret"
	token, err := s.secrets.Get(s.Account.ID)
	if err != nil {
		return "", sapicerr.Wrap(sapicerr.Backend, op, err)
	}
	return token, nil
}

// Sessions materializes one Session per account of the active profile.
func (m *Manager) Sessions() ([]Session, error) {
	active, err := m.ActiveProfile()
	if err != nil {
		return nil, err
	}
	sessions := make([]Session, len(active.Accounts))
	for i, acc := range active.Accounts {
		sessions[i] = Session{Account: acc, secrets: m.secrets}
	}
	return sessions, nil
}

// AccountExists reports whether id names an account of the active
// profile. internal/project's Restore takes this as an injected callback,
// to avoid an import cycle, to decide whether a project's VCS binding
// still resolves to a live account.
func (m *Manager) AccountExists(id string) bool {
	active, err := m.ActiveProfile()
	if err != nil {
		return false
	}
	for _, acc := range active.Accounts {
		if acc.ID == id {
			return true
		}
	}
	return false
}
