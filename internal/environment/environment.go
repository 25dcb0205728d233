package environment

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/sapic/core/internal/fsx"
	"github.com/sapic/core/internal/sapicerr"
)

const fileSuffix = ".sapic-env"

// Path returns the on-disk path of the environment with the given id under
// environmentsDir.
func Path(environmentsDir, id string) string {
	return filepath.Join(environmentsDir, id+fileSuffix)
}

// Create writes a new, empty environment file under environmentsDir and
// returns its document.
func Create(ctx context.Context, environmentsDir, name string) (*Document, error) {
	const op = "environment.Create"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, sapicerr.New(sapicerr.InvalidInput, op, "name must not be empty")
	}

	doc := &Document{ID: uuid.NewString(), Metadata: Metadata{Name: name}}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
	}

	session := fsx.NewSession()
	if err := session.CreateFileWithContentWithRollback(ctx, Path(environmentsDir, doc.ID), raw); err != nil {
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}
	session.Commit()
	return doc, nil
}

// Load reads and parses the environment with the given id.
func Load(ctx context.Context, environmentsDir, id string) (*Document, error) {
	const op = "environment.Load"
	raw, err := fsx.ReadFile(ctx, Path(environmentsDir, id))
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
	}
	return &doc, nil
}

// List returns every environment document under environmentsDir, sorted by
// name.
func List(ctx context.Context, environmentsDir string) ([]*Document, error) {
	const op = "environment.List"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(environmentsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}

	var docs []*Document
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), fileSuffix)
		doc, err := Load(ctx, environmentsDir, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Metadata.Name < docs[j].Metadata.Name })
	return docs, nil
}

// Delete removes the environment with the given id.
func Delete(ctx context.Context, environmentsDir, id string) error {
	const op = "environment.Delete"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	session := fsx.NewSession()
	if err := session.RemoveWithRollback(ctx, Path(environmentsDir, id)); err != nil {
		return sapicerr.Wrap(sapicerr.Io, op, err)
	}
	session.Commit()
	return nil
}

func checkCtx(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return sapicerr.Wrap(sapicerr.Canceled, op, err)
	}
	return nil
}
