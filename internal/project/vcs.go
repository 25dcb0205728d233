package project

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/uuid"

	"github.com/sapic/core/internal/fsx"
	"github.com/sapic/core/internal/sapicerr"
)

// gitInitWithRemote initializes a local repository at path and points its
// "origin" remote at repositoryURL, without fetching. Create() calls this
// when a new project requests a VCS binding; any error here is non-fatal
// to the caller, which keeps the project as local-only.
func gitInitWithRemote(path, repositoryURL string) error {
	repo, err := git.PlainInit(path, false)
	if err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{repositoryURL},
	})
	if err != nil {
		return fmt.Errorf("git remote add: %w", err)
	}
	return nil
}

// Credentials authenticates a git operation against a hosting provider,
// either a personal access token or an OAuth access token — both are
// carried as a bearer-style password.
type Credentials struct {
	Username string // defaults to "x-access-token" when empty
	Token    string
}

func (c Credentials) auth() *githttp.BasicAuth {
	username := c.Username
	if username == "" {
		username = "x-access-token"
	}
	return &githttp.BasicAuth{Username: username, Password: c.Token}
}

// CloneParams are the inputs to Clone.
type CloneParams struct {
	RepositoryURL string
	Branch        string // optional
	AccountID     string
}

// Clone creates the project directory and performs a git clone against the
// account's credentials, optionally checking out a named branch. Unlike
// Create, any failure here is fatal: the partially cloned directory is
// removed and the error returned.
func Clone(ctx context.Context, projectsDir string, creds Credentials, params CloneParams) (*Project, error) {
	const op = "project.Clone"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if params.RepositoryURL == "" {
		return nil, sapicerr.New(sapicerr.InvalidInput, op, "repository url must not be empty")
	}

	id := uuid.NewString()
	internalPath := filepath.Join(projectsDir, id)

	cloneOpts := &git.CloneOptions{
		URL:  params.RepositoryURL,
		Auth: creds.auth(),
	}
	if params.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(params.Branch)
		cloneOpts.SingleBranch = true
	}

	if _, err := git.PlainCloneContext(ctx, internalPath, false, cloneOpts); err != nil {
		_ = os.RemoveAll(internalPath)
		return nil, sapicerr.Wrap(sapicerr.Io, op, fmt.Errorf("clone %s: %w", params.RepositoryURL, err))
	}

	name := repoNameFromURL(params.RepositoryURL)
	manifest := readOrDefaultManifest(internalPath, name)
	manifest.VCS = &ManifestVCS{Kind: classifyHost(params.RepositoryURL), Repository: params.RepositoryURL}

	accountID := params.AccountID
	repoURL := params.RepositoryURL
	cfg := Config{Archived: false, AccountID: &accountID, Repository: &repoURL}

	session := fsx.NewSession()
	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		_ = os.RemoveAll(internalPath)
		return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
	}
	if err := session.CreateFileWithContentWithRollback(ctx, filepath.Join(internalPath, "Sapic.json"), manifestBytes); err != nil {
		_ = os.RemoveAll(internalPath)
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}
	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		_ = os.RemoveAll(internalPath)
		return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
	}
	if err := session.CreateFileWithContentWithRollback(ctx, filepath.Join(internalPath, "config.json"), cfgBytes); err != nil {
		_ = os.RemoveAll(internalPath)
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}
	session.Commit()

	return &Project{
		ID:           id,
		InternalPath: internalPath,
		Name:         manifest.Name,
		VCS:          &VCSBinding{Kind: manifest.VCS.Kind, Repository: params.RepositoryURL, AccountID: accountID},
	}, nil
}

func readOrDefaultManifest(internalPath, fallbackName string) Manifest {
	raw, err := os.ReadFile(filepath.Join(internalPath, "Sapic.json"))
	if err != nil {
		return Manifest{Name: fallbackName}
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil || m.Name == "" {
		return Manifest{Name: fallbackName}
	}
	return m
}

func repoNameFromURL(url string) string {
	base := strings.TrimSuffix(filepath.Base(url), ".git")
	if base == "" || base == "." || base == "/" {
		return "imported-project"
	}
	return base
}

func classifyHost(url string) VCSKind {
	switch {
	case strings.Contains(url, "github.com"):
		return VCSGitHub
	case strings.Contains(url, "gitlab.com"):
		return VCSGitLab
	default:
		return VCSNone
	}
}
