// Package project implements the project lifecycle: create, clone,
// import-archive, import-external, export-archive, delete, and
// restore-on-workspace-open. A Project binds one worktree engine, one
// storage scope, and an optional VCS binding to a directory on disk.
package project

import (
	"github.com/sapic/core/internal/kv"
	"github.com/sapic/core/internal/worktree"
)

// VCSKind identifies the hosting provider a project is bound to.
type VCSKind int

const (
	VCSNone VCSKind = iota
	VCSGitHub
	VCSGitLab
)

func (k VCSKind) String() string {
	switch k {
	case VCSGitHub:
		return "github"
	case VCSGitLab:
		return "gitlab"
	default:
		return "none"
	}
}

func (k VCSKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *VCSKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "github":
		*k = VCSGitHub
	case "gitlab":
		*k = VCSGitLab
	case "none", "":
		*k = VCSNone
	default:
		*k = VCSNone
	}
	return nil
}

// ManifestVCS is the VCS descriptor stored in Sapic.json.
type ManifestVCS struct {
	Kind       VCSKind `json:"kind"`
	Repository string  `json:"repository"`
}

// Manifest is Sapic.json: the project's stable, version-controllable
// identity.
type Manifest struct {
	Name string       `json:"name"`
	VCS  *ManifestVCS `json:"vcs,omitempty"`
}

// Config is config.json: local, machine-specific state never checked into
// a cloned repository.
type Config struct {
	Archived     bool    `json:"archived"`
	ExternalPath *string `json:"external_path,omitempty"`
	AccountID    *string `json:"account_id,omitempty"`
	Repository   *string `json:"repository,omitempty"`
}

// VCSBinding is a project's live binding to a hosting provider, account,
// and repository URL.
type VCSBinding struct {
	Kind       VCSKind
	Repository string
	AccountID  string
}

// Project is one bound project directory.
type Project struct {
	ID           string
	InternalPath string // owned absolute path: <projects-dir>/<id>
	Name         string
	ExternalPath string // non-empty only for import_external projects
	Archived     bool
	VCS          *VCSBinding
}

// ResourcesDir is the project's worktree root on disk.
func (p *Project) ResourcesDir() string {
	return p.InternalPath + "/resources"
}

// EnvironmentsDir is the project's environment-file directory on disk.
func (p *Project) EnvironmentsDir() string {
	return p.InternalPath + "/environments"
}

// Scope returns the storage scope that exclusively belongs to this
// project.
func (p *Project) Scope() kv.Scope {
	return kv.ProjectScope(p.ID)
}

// Worktree constructs the worktree engine bound to this project's
// resources directory and storage scope. It is cheap and stateless to
// build — a project exclusively owning its worktree engine is honored by
// callers holding exactly one live Worktree per Project, not by this
// constructor caching one.
func (p *Project) Worktree(storage kv.Backend) *worktree.Worktree {
	return worktree.New(p.ResourcesDir(), storage, p.Scope())
}

// Warning is a non-fatal condition surfaced during restore or lifecycle
// operations that degrade rather than fail outright.
type Warning struct {
	ProjectID string
	Message   string
}
