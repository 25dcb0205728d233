package profile

import (
	"github.com/zalando/go-keyring"
)

// keyringService namespaces every secret this module writes into the OS
// keyring, so profile secrets never collide with another application's
// entries under the same account name.
const keyringService = "sapic"

// SecretStore is the narrow interface this package needs from an OS
// keyring, kept behind an interface the same way the storage backends sit
// behind kv.Backend, so tests can swap in an in-memory fake instead of
// touching a real keyring.
type SecretStore interface {
	Set(account, secret string) error
	Get(account string) (string, error)
	Delete(account string) error
}

// osKeyring adapts github.com/zalando/go-keyring (see DESIGN.md for why
// this dependency was added).
type osKeyring struct{}

// NewOSKeyring returns the real OS-keyring-backed SecretStore.
func NewOSKeyring() SecretStore { return osKeyring{} }

func (osKeyring) Set(account, secret string) error {
	return keyring.Set(keyringService, account, secret)
}

func (osKeyring) Get(account string) (string, error) {
	return keyring.Get(keyringService, account)
}

func (osKeyring) Delete(account string) error {
	return keyring.Delete(keyringService, account)
}
