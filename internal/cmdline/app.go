package cmdline

import (
	"fmt"

	"github.com/sapic/core/internal/config"
	"github.com/sapic/core/internal/kv"
	"github.com/sapic/core/internal/kv/memkv"
	"github.com/sapic/core/internal/kv/sqlitekv"
	"github.com/sapic/core/internal/profile"
)

// app bundles the live collaborators every subcommand needs: the loaded
// config, the keyed storage backend, and the profile manager. Built once
// per invocation, before dispatching to the requested subcommand.
type app struct {
	cfg     *config.Config
	storage kv.Backend
	profile *profile.Manager
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var storage kv.Backend
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		storage = memkv.New()
	default:
		storage, err = sqlitekv.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	mgr, err := profile.NewManager(
		cfg.ProfilesPath,
		profile.NewOSKeyring(),
		profile.NewHTTPRemoteUserFetcher(),
		profile.NewLoopbackPKCEAuthenticator(openBrowser),
	)
	if err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("load profile registry: %w", err)
	}

	return &app{cfg: cfg, storage: storage, profile: mgr}, nil
}

func (a *app) Close() error {
	return a.storage.Close()
}
