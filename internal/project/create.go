package project

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sapic/core/internal/fsx"
	"github.com/sapic/core/internal/sapicerr"
)

const gitignoreContent = "config.json\n**/state.db"

// CreateVCS requests a VCS binding at create time.
type CreateVCS struct {
	Kind          VCSKind
	RepositoryURL string
}

// CreateParams are the inputs to Create.
type CreateParams struct {
	Name string
	VCS  *CreateVCS
}

// Create reserves projects/<id>, writes the manifest and config documents,
// and materializes the fixed project skeleton.
func Create(ctx context.Context, projectsDir string, params CreateParams) (*Project, []Warning, error) {
	const op = "project.Create"
	if err := checkCtx(ctx, op); err != nil {
		return nil, nil, err
	}
	if params.Name == "" {
		return nil, nil, sapicerr.New(sapicerr.InvalidInput, op, "name must not be empty")
	}

	id := uuid.NewString()
	internalPath := filepath.Join(projectsDir, id)

	session := fsx.NewSession()
	if err := session.CreateDirWithRollback(ctx, internalPath); err != nil {
		return nil, nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}

	manifest := Manifest{Name: params.Name}
	if params.VCS != nil {
		manifest.VCS = &ManifestVCS{Kind: params.VCS.Kind, Repository: params.VCS.RepositoryURL}
	}
	if err := writeSkeleton(ctx, session, internalPath, manifest, Config{Archived: false}); err != nil {
		_ = session.Rollback()
		return nil, nil, err
	}

	session.Commit()

	proj := &Project{ID: id, InternalPath: internalPath, Name: params.Name}
	var warnings []Warning

	if params.VCS != nil {
		if err := gitInitWithRemote(internalPath, params.VCS.RepositoryURL); err != nil {
			warnings = append(warnings, Warning{
				ProjectID: id,
				Message:   "Invalid Repository",
			})
		} else {
			proj.VCS = &VCSBinding{Kind: params.VCS.Kind, Repository: params.VCS.RepositoryURL}
		}
	}

	return proj, warnings, nil
}

// ImportArchiveParams are the inputs to ImportArchive.
type ImportArchiveParams struct {
	ArchivePath string
	Name        string
}

// ImportArchive unzips an exported project archive into a fresh project
// directory and renames it per params.Name.
func ImportArchive(ctx context.Context, projectsDir string, params ImportArchiveParams) (*Project, error) {
	const op = "project.ImportArchive"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	internalPath := filepath.Join(projectsDir, id)

	session := fsx.NewSession()
	if err := session.CreateDirWithRollback(ctx, internalPath); err != nil {
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}
	if err := fsx.UnzipTo(ctx, params.ArchivePath, internalPath); err != nil {
		_ = session.Rollback()
		return nil, err
	}

	manifest := Manifest{Name: params.Name}
	manifestPath := filepath.Join(internalPath, "Sapic.json")
	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		_ = session.Rollback()
		return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
	}
	if err := session.CreateFileWithContentWithRollback(ctx, manifestPath, manifestBytes); err != nil {
		_ = session.Rollback()
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}

	cfgBytes, err := json.Marshal(Config{Archived: false})
	if err != nil {
		_ = session.Rollback()
		return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
	}
	if err := session.CreateFileWithContentWithRollback(ctx, filepath.Join(internalPath, "config.json"), cfgBytes); err != nil {
		_ = session.Rollback()
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}

	session.Commit()
	return &Project{ID: id, InternalPath: internalPath, Name: params.Name}, nil
}

// ImportExternalParams are the inputs to ImportExternal.
type ImportExternalParams struct {
	ExternalPath string
	Name         string
}

// ImportExternal binds a project to an existing external directory without
// copying its content.
func ImportExternal(ctx context.Context, projectsDir string, params ImportExternalParams) (*Project, error) {
	const op = "project.ImportExternal"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if params.ExternalPath == "" {
		return nil, sapicerr.New(sapicerr.InvalidInput, op, "external path must not be empty")
	}

	id := uuid.NewString()
	internalPath := filepath.Join(projectsDir, id)

	session := fsx.NewSession()
	if err := session.CreateDirWithRollback(ctx, internalPath); err != nil {
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}

	ext := params.ExternalPath
	cfg := Config{Archived: false, ExternalPath: &ext}
	if err := writeSkeleton(ctx, session, internalPath, Manifest{Name: params.Name}, cfg); err != nil {
		_ = session.Rollback()
		return nil, err
	}

	session.Commit()
	return &Project{ID: id, InternalPath: internalPath, Name: params.Name, ExternalPath: ext}, nil
}

// writeSkeleton writes Sapic.json, config.json, .gitignore and the fixed
// assets/environments/resources directories with their .gitkeep markers.
func writeSkeleton(ctx context.Context, session *fsx.Session, internalPath string, manifest Manifest, cfg Config) error {
	const op = "project.writeSkeleton"

	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		return sapicerr.Wrap(sapicerr.SerDe, op, err)
	}
	if err := session.CreateFileWithContentWithRollback(ctx, filepath.Join(internalPath, "Sapic.json"), manifestBytes); err != nil {
		return sapicerr.Wrap(sapicerr.Io, op, err)
	}

	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		return sapicerr.Wrap(sapicerr.SerDe, op, err)
	}
	if err := session.CreateFileWithContentWithRollback(ctx, filepath.Join(internalPath, "config.json"), cfgBytes); err != nil {
		return sapicerr.Wrap(sapicerr.Io, op, err)
	}

	if err := session.CreateFileWithContentWithRollback(ctx, filepath.Join(internalPath, ".gitignore"), []byte(gitignoreContent)); err != nil {
		return sapicerr.Wrap(sapicerr.Io, op, err)
	}

	for _, dir := range []string{"assets", "environments", "resources"} {
		full := filepath.Join(internalPath, dir)
		if err := session.CreateDirWithRollback(ctx, full); err != nil {
			return sapicerr.Wrap(sapicerr.Io, op, err)
		}
		if err := session.CreateFileWithContentWithRollback(ctx, filepath.Join(full, ".gitkeep"), nil); err != nil {
			return sapicerr.Wrap(sapicerr.Io, op, err)
		}
	}
	return nil
}

func checkCtx(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return sapicerr.Wrap(sapicerr.Canceled, op, err)
	}
	return nil
}
