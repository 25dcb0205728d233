package profile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sapic/core/internal/sapicerr"
)

// registry is the on-disk shape of profiles.json: an ordered, non-empty
// array of profiles.
type registry struct {
	Profiles []Profile `json:"profiles"`
}

// loadOrInitRegistry reads path, synthesizing and persisting a single
// Default profile on first launch.
func loadOrInitRegistry(path string) (*registry, error) {
	const op = "profile.loadOrInitRegistry"

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		reg := &registry{Profiles: []Profile{{
			ID:        uuid.NewString(),
			Name:      "Default",
			IsDefault: true,
		}}}
		if err := saveRegistry(path, reg); err != nil {
			return nil, err
		}
		return reg, nil
	}
	if err != nil {
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}

	var reg registry
	if err := json.Unmarshal(raw, &reg); err != nil {
		return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
	}
	if len(reg.Profiles) == 0 {
		return nil, sapicerr.New(sapicerr.SerDe, op, "profiles.json must not be empty")
	}
	return &reg, nil
}

func saveRegistry(path string, reg *registry) error {
	const op = "profile.saveRegistry"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return sapicerr.Wrap(sapicerr.Io, op, err)
	}
	raw, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return sapicerr.Wrap(sapicerr.SerDe, op, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return sapicerr.Wrap(sapicerr.Io, op, err)
	}
	return nil
}
