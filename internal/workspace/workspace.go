package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sapic/core/internal/kv"
	"github.com/sapic/core/internal/sapicerr"
)

const manifestFileName = "workspace.json"

func lastOpenedKey(id string) string { return "workspace." + id + ".lastOpenedAt" }

// List enumerates every immediate child directory of workspacesDir,
// parses its manifest, and decorates it with lastOpenedAt from
// application-scope storage. Unreadable or malformed manifests are
// skipped with a warning rather than aborting the scan.
func List(ctx context.Context, workspacesDir string, storage kv.Backend) ([]Workspace, []Warning, error) {
	const op = "workspace.List"
	if err := ctx.Err(); err != nil {
		return nil, nil, sapicerr.Wrap(sapicerr.Canceled, op, err)
	}

	entries, err := os.ReadDir(workspacesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}

	var (
		workspaces []Workspace
		warnings   []Warning
	)
	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, sapicerr.Wrap(sapicerr.Canceled, op, err)
		}
		if !de.IsDir() {
			continue
		}
		path := filepath.Join(workspacesDir, de.Name())

		raw, err := os.ReadFile(filepath.Join(path, manifestFileName))
		if err != nil {
			warnings = append(warnings, Warning{Path: path, Message: "unreadable workspace manifest"})
			continue
		}
		var m Manifest
		if err := json.Unmarshal(raw, &m); err != nil || m.ID == "" {
			warnings = append(warnings, Warning{Path: path, Message: "corrupt workspace manifest"})
			continue
		}

		ws := Workspace{ID: m.ID, Path: path, Name: m.Name}
		if t, err := readLastOpenedAt(ctx, storage, m.ID); err == nil {
			ws.LastOpenedAt = t
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, warnings, nil
}

func readLastOpenedAt(ctx context.Context, storage kv.Backend, id string) (*time.Time, error) {
	raw, ok, err := storage.Get(ctx, kv.AppScope, lastOpenedKey(id))
	if err != nil || !ok {
		return nil, err
	}
	var seconds int64
	if err := json.Unmarshal(raw, &seconds); err != nil {
		return nil, err
	}
	t := time.Unix(seconds, 0).UTC()
	return &t, nil
}

// Create materializes a new workspace directory with its manifest.
func Create(ctx context.Context, workspacesDir, id, name string) (*Workspace, error) {
	const op = "workspace.Create"
	if err := ctx.Err(); err != nil {
		return nil, sapicerr.Wrap(sapicerr.Canceled, op, err)
	}
	path := filepath.Join(workspacesDir, id)
	if err := os.MkdirAll(filepath.Join(path, "projects"), 0o755); err != nil {
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}
	raw, err := json.Marshal(Manifest{ID: id, Name: name})
	if err != nil {
		return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
	}
	if err := os.WriteFile(filepath.Join(path, manifestFileName), raw, 0o644); err != nil {
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}
	return &Workspace{ID: id, Path: path, Name: name}, nil
}

// Open validates that id names an existing workspace directory and
// stamps its lastOpenedAt to now.
func Open(ctx context.Context, workspacesDir string, storage kv.Backend, id string) (*Workspace, error) {
	const op = "workspace.Open"
	if err := ctx.Err(); err != nil {
		return nil, sapicerr.Wrap(sapicerr.Canceled, op, err)
	}
	path := filepath.Join(workspacesDir, id)
	raw, err := os.ReadFile(filepath.Join(path, manifestFileName))
	if err != nil {
		return nil, sapicerr.New(sapicerr.NotFound, op, fmt.Sprintf("workspace %q not found", id))
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
	}

	now := time.Now().UTC()
	seconds, err := json.Marshal(now.Unix())
	if err != nil {
		return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
	}
	if err := storage.Put(ctx, kv.AppScope, lastOpenedKey(id), seconds); err != nil {
		return nil, sapicerr.Wrap(sapicerr.Backend, op, err)
	}

	return &Workspace{ID: m.ID, Path: path, Name: m.Name, LastOpenedAt: &now}, nil
}
