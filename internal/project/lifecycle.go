package project

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/sapic/core/internal/fsx"
	"github.com/sapic/core/internal/kv"
	"github.com/sapic/core/internal/sapicerr"
)

// exportExcludes are the files never packed into an exported archive:
// machine-local config, and the three possible SQLite file variants plus
// its backup and any embedded .git directory.
var exportExcludes = []string{
	"config.json",
	"state.bak",
	"state.sqlite3",
	"state.sqlite3-shm",
	"state.sqlite3-wal",
}

func isExcludedFromExport(relPath string) bool {
	for _, ex := range exportExcludes {
		if relPath == ex {
			return true
		}
	}
	return relPath == ".git" || strings.HasPrefix(relPath, ".git/")
}

// ExportArchive packs a project's directory into a zip at destZipPath,
// excluding machine-local state. Exporting into the project's own
// directory is refused to avoid the archive including itself mid-write.
func ExportArchive(ctx context.Context, proj *Project, destZipPath string) error {
	const op = "project.ExportArchive"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	absDest, err := filepath.Abs(destZipPath)
	if err != nil {
		return sapicerr.Wrap(sapicerr.InvalidInput, op, err)
	}
	absInternal, err := filepath.Abs(proj.InternalPath)
	if err != nil {
		return sapicerr.Wrap(sapicerr.InvalidInput, op, err)
	}
	if strings.HasPrefix(absDest, absInternal+string(filepath.Separator)) {
		return sapicerr.New(sapicerr.InvalidInput, op, "cannot export a project into its own directory")
	}

	return fsx.ZipDir(ctx, proj.InternalPath, destZipPath, isExcludedFromExport)
}

// Delete removes a project's directory tree and purges every storage key
// under its scope. Both halves tolerate the project already being
// partially gone, treating a missing target as success.
func Delete(ctx context.Context, proj *Project, storage kv.Backend) error {
	const op = "project.Delete"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	if err := fsx.RemoveAll(ctx, proj.InternalPath); err != nil {
		return sapicerr.Wrap(sapicerr.Io, op, err)
	}
	if err := storage.RemoveBatchByPrefix(ctx, proj.Scope(), ""); err != nil {
		return sapicerr.Wrap(sapicerr.Backend, op, err)
	}
	return nil
}

// RestoreResult is one project discovered during Restore, alongside any
// warnings surfaced while loading it.
type RestoreResult struct {
	Project  *Project
	Warnings []Warning
}

// Restore enumerates every immediate child directory of projectsDir,
// parses its Sapic.json/config.json pair, and reconstructs a Project for
// each. Entries that fail to parse are skipped with a warning rather than
// aborting the whole scan. accountExists is injected by the caller
// (internal/profile owns account identity) to avoid an import cycle;
// archived projects skip the account check entirely since their VCS
// binding is dormant.
func Restore(ctx context.Context, projectsDir string, accountExists func(id string) bool) ([]RestoreResult, error) {
	const op = "project.Restore"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}

	var results []RestoreResult
	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return nil, sapicerr.Wrap(sapicerr.Canceled, op, err)
		}
		if !de.IsDir() {
			continue
		}
		id := de.Name()
		internalPath := filepath.Join(projectsDir, id)

		manifestRaw, err := os.ReadFile(filepath.Join(internalPath, "Sapic.json"))
		if err != nil {
			results = append(results, RestoreResult{Warnings: []Warning{{ProjectID: id, Message: "Unreadable project manifest"}}})
			continue
		}
		var manifest Manifest
		if err := json.Unmarshal(manifestRaw, &manifest); err != nil {
			results = append(results, RestoreResult{Warnings: []Warning{{ProjectID: id, Message: "Corrupt project manifest"}}})
			continue
		}

		var cfg Config
		if cfgRaw, err := os.ReadFile(filepath.Join(internalPath, "config.json")); err == nil {
			_ = json.Unmarshal(cfgRaw, &cfg)
		}

		proj := &Project{ID: id, InternalPath: internalPath, Name: manifest.Name, Archived: cfg.Archived}
		if cfg.ExternalPath != nil {
			proj.ExternalPath = *cfg.ExternalPath
		}

		var warnings []Warning
		if manifest.VCS != nil && !proj.Archived {
			accountID := ""
			if cfg.AccountID != nil {
				accountID = *cfg.AccountID
			}
			proj.VCS = &VCSBinding{Kind: manifest.VCS.Kind, Repository: manifest.VCS.Repository, AccountID: accountID}
			if accountID == "" || (accountExists != nil && !accountExists(accountID)) {
				warnings = append(warnings, Warning{ProjectID: id, Message: "Missing account for project repository"})
			}
		}

		results = append(results, RestoreResult{Project: proj, Warnings: warnings})
	}
	return results, nil
}
