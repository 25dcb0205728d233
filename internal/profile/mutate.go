package profile

import (
	"context"

	"github.com/google/uuid"

	"github.com/sapic/core/internal/sapicerr"
)

// AddAccount creates a session (OAuth PKCE when pat is nil, a stored PAT
// otherwise), derives the remote username, rejects a duplicate identified
// by (kind, username, host), and inserts the account into the active
// profile.
func (m *Manager) AddAccount(ctx context.Context, host string, kind AccountKind, pat *string) (*Account, error) {
	const op = "profile.AddAccount"

	m.mu.Lock()
	idx := m.indexOf(m.activeID)
	if m.activeID == "" || idx < 0 {
		m.mu.Unlock()
		return nil, sapicerr.New(sapicerr.FailedPrecondition, op, "no active profile")
	}
	m.mu.Unlock()

	var token string
	var sessionKind SessionKind
	if pat != nil {
		token = *pat
		sessionKind = SessionPAT
	} else {
		t, err := m.pkce.Authorize(ctx, host, kind)
		if err != nil {
			return nil, err
		}
		token = t
		sessionKind = SessionOAuth
	}

	username, expiresAt, err := m.users.FetchUser(ctx, host, kind, token)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	idx = m.indexOf(m.activeID)
	if idx < 0 {
		return nil, sapicerr.New(sapicerr.FailedPrecondition, op, "active profile no longer exists")
	}
	profile := &m.reg.Profiles[idx]
	for _, acc := range profile.Accounts {
		if acc.Kind == kind && acc.Username == username && acc.Host == host {
			return nil, sapicerr.New(sapicerr.AlreadyExists, op, "account already bound: "+username+"@"+host)
		}
	}

	account := Account{
		ID:       uuid.NewString(),
		Username: username,
		Host:     host,
		Kind:     kind,
		Metadata: AccountMetadata{SessionKind: sessionKind, ExpiresAt: expiresAt},
	}
	if err := m.secrets.Set(account.ID, token); err != nil {
		return nil, sapicerr.Wrap(sapicerr.Backend, op, err)
	}

	profile.Accounts = append(profile.Accounts, account)
	if err := saveRegistry(m.path, m.reg); err != nil {
		profile.Accounts = profile.Accounts[:len(profile.Accounts)-1]
		_ = m.secrets.Delete(account.ID)
		return nil, err
	}
	return &account, nil
}

// RemoveAccount purges the account from the registry, then best-effort
// removes its keyring secret. A keyring failure downgrades to a warning
// rather than an error.
func (m *Manager) RemoveAccount(id string) ([]Warning, error) {
	const op = "profile.RemoveAccount"

	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(m.activeID)
	if m.activeID == "" || idx < 0 {
		return nil, sapicerr.New(sapicerr.FailedPrecondition, op, "no active profile")
	}
	profile := &m.reg.Profiles[idx]

	accIdx := -1
	for i, acc := range profile.Accounts {
		if acc.ID == id {
			accIdx = i
			break
		}
	}
	if accIdx < 0 {
		return nil, sapicerr.New(sapicerr.NotFound, op, "unknown account id: "+id)
	}

	profile.Accounts = append(profile.Accounts[:accIdx], profile.Accounts[accIdx+1:]...)
	if err := saveRegistry(m.path, m.reg); err != nil {
		return nil, err
	}

	var warnings []Warning
	if err := m.secrets.Delete(id); err != nil {
		warnings = append(warnings, Warning{ProfileID: profile.ID, AccountID: id, Message: "failed to remove keyring secret"})
	}
	return warnings, nil
}

// UpdateAccount rotates an account's PAT, verifying the new token
// authenticates as the same username; on mismatch the prior PAT is
// restored and the call fails.
func (m *Manager) UpdateAccount(ctx context.Context, id, newPAT string) error {
	const op = "profile.UpdateAccount"

	m.mu.Lock()
	idx := m.indexOf(m.activeID)
	if m.activeID == "" || idx < 0 {
		m.mu.Unlock()
		return sapicerr.New(sapicerr.FailedPrecondition, op, "no active profile")
	}
	profile := &m.reg.Profiles[idx]
	accIdx := -1
	for i, acc := range profile.Accounts {
		if acc.ID == id {
			accIdx = i
			break
		}
	}
	if accIdx < 0 {
		m.mu.Unlock()
		return sapicerr.New(sapicerr.NotFound, op, "unknown account id: "+id)
	}
	account := profile.Accounts[accIdx]
	m.mu.Unlock()

	priorToken, err := m.secrets.Get(id)
	if err != nil {
		return sapicerr.Wrap(sapicerr.Backend, op, err)
	}

	username, expiresAt, err := m.users.FetchUser(ctx, account.Host, account.Kind, newPAT)
	if err != nil {
		return err
	}
	if username != account.Username {
		if restoreErr := m.secrets.Set(id, priorToken); restoreErr != nil {
			return sapicerr.Wrap(sapicerr.Backend, op, restoreErr)
		}
		return sapicerr.New(sapicerr.InvalidInput, op, "rotated token authenticates as a different user")
	}

	if err := m.secrets.Set(id, newPAT); err != nil {
		return sapicerr.Wrap(sapicerr.Backend, op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	idx = m.indexOf(m.activeID)
	if idx < 0 {
		return sapicerr.New(sapicerr.FailedPrecondition, op, "active profile no longer exists")
	}
	profile = &m.reg.Profiles[idx]
	for i, acc := range profile.Accounts {
		if acc.ID == id {
			profile.Accounts[i].Metadata.SessionKind = SessionPAT
			profile.Accounts[i].Metadata.ExpiresAt = expiresAt
			break
		}
	}
	return saveRegistry(m.path, m.reg)
}
