// Package environment implements environment files: a project-scoped
// document holding a display name, an optional color, and a set of
// variables, edited in place with the same structured-editor pattern the
// worktree engine uses for its entry configuration documents.
package environment

import "encoding/json"

// Metadata is an environment's descriptive header.
type Metadata struct {
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
}

// Variable is one entry in an environment's variable set. Every field is
// always present in the serialized form (no omitempty): Edit's per-field
// Replace ops target these paths directly and require the target key to
// already exist.
type Variable struct {
	Name        string          `json:"name"`
	Value       json.RawMessage `json:"value"`
	Description string          `json:"description"`
	Order       int             `json:"order"`
	Disabled    bool            `json:"disabled"`
}

// Document is the on-disk shape of an environment file.
type Document struct {
	ID        string              `json:"id"`
	Metadata  Metadata            `json:"metadata"`
	Variables map[string]Variable `json:"variables,omitempty"`
}
