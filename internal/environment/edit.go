package environment

import (
	"context"
	"encoding/json"

	"github.com/sapic/core/internal/fsx"
	"github.com/sapic/core/internal/patch"
	"github.com/sapic/core/internal/sapicerr"
)

// AddVariableParams describes a variable to insert during Edit.
type AddVariableParams struct {
	ID          string
	Name        string
	Value       json.RawMessage
	Description string
	Order       int
}

// UpdateVariableParams describes a change to an existing variable. Nil
// fields leave the corresponding property unchanged.
type UpdateVariableParams struct {
	ID          string
	Name        *string
	Value       json.RawMessage
	Description *string
	Disabled    *bool
}

// EditParams is the set of edits Edit applies to one environment document
// in a single pass. Zero-value fields (nil, empty, false) make no change.
type EditParams struct {
	Name       *string
	SetColor   *string
	ClearColor bool

	AddVariables    []AddVariableParams
	UpdateVariables []UpdateVariableParams
	RemoveVariables []string
}

// Edit applies params to the environment with the given id, rewriting its
// document on disk. Name and color edits run first, then variable adds,
// updates, and removes, in that order — matching the shape a caller
// building one request out of several form fields expects.
func Edit(ctx context.Context, environmentsDir, id string, params EditParams) (*Document, error) {
	const op = "environment.Edit"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	path := Path(environmentsDir, id)
	raw, err := fsx.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}

	ops, err := buildOps(params)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
		}
		return &doc, nil
	}

	patched, err := patch.Apply(raw, ops)
	if err != nil {
		return nil, err
	}
	compact, err := patch.Compact(patched)
	if err != nil {
		return nil, err
	}

	session := fsx.NewSession()
	if err := session.CreateFileWithContentWithRollback(ctx, path, compact); err != nil {
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}
	session.Commit()

	var doc Document
	if err := json.Unmarshal(compact, &doc); err != nil {
		return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
	}
	return &doc, nil
}

func buildOps(params EditParams) ([]patch.Op, error) {
	var ops []patch.Op

	if params.Name != nil {
		value, _ := json.Marshal(*params.Name)
		ops = append(ops, patch.Op{
			Kind: patch.Add, Path: patch.Pointer("metadata", "name"),
			Value: value, CreateMissingSegments: true,
		})
	}

	if params.SetColor != nil {
		value, _ := json.Marshal(*params.SetColor)
		ops = append(ops, patch.Op{
			Kind: patch.Add, Path: patch.Pointer("metadata", "color"),
			Value: value, CreateMissingSegments: true,
		})
	} else if params.ClearColor {
		ops = append(ops, patch.Op{
			Kind: patch.Remove, Path: patch.Pointer("metadata", "color"),
			IgnoreIfNotExists: true,
		})
	}

	for _, add := range params.AddVariables {
		v := Variable{Name: add.Name, Value: add.Value, Description: add.Description, Order: add.Order}
		value, err := json.Marshal(v)
		if err != nil {
			return nil, sapicerr.Wrap(sapicerr.SerDe, "environment.buildOps", err)
		}
		ops = append(ops, patch.Op{
			Kind: patch.Add, Path: patch.Pointer("variables", add.ID),
			Value: value, CreateMissingSegments: true,
		})
	}

	for _, upd := range params.UpdateVariables {
		if upd.Name != nil {
			value, _ := json.Marshal(*upd.Name)
			ops = append(ops, patch.Op{
				Kind: patch.Replace, Path: patch.Pointer("variables", upd.ID, "name"), Value: value,
			})
		}
		if upd.Value != nil {
			ops = append(ops, patch.Op{
				Kind: patch.Replace, Path: patch.Pointer("variables", upd.ID, "value"), Value: upd.Value,
			})
		}
		if upd.Description != nil {
			value, _ := json.Marshal(*upd.Description)
			ops = append(ops, patch.Op{
				Kind: patch.Replace, Path: patch.Pointer("variables", upd.ID, "description"), Value: value,
			})
		}
		if upd.Disabled != nil {
			value, _ := json.Marshal(*upd.Disabled)
			ops = append(ops, patch.Op{
				Kind: patch.Replace, Path: patch.Pointer("variables", upd.ID, "disabled"), Value: value,
			})
		}
	}

	for _, id := range params.RemoveVariables {
		ops = append(ops, patch.Op{
			Kind: patch.Remove, Path: patch.Pointer("variables", id),
			IgnoreIfNotExists: true,
		})
	}

	return ops, nil
}
