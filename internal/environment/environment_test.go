package environment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sapic/core/internal/sapicerr"
)

func strPtr(s string) *string { return &s }

func TestCreateLoadListRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	doc, err := Create(ctx, dir, "Staging")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if doc.ID == "" || doc.Metadata.Name != "Staging" {
		t.Fatalf("Create() doc = %+v", doc)
	}

	got, err := Load(ctx, dir, doc.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.ID != doc.ID || got.Metadata.Name != "Staging" {
		t.Fatalf("Load() = %+v, want %+v", got, doc)
	}

	if _, err := Create(ctx, dir, "Production"); err != nil {
		t.Fatalf("Create(Production) error = %v", err)
	}
	list, err := List(ctx, dir)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Metadata.Name != "Production" || list[1].Metadata.Name != "Staging" {
		t.Fatalf("List() = %+v, want [Production, Staging]", list)
	}
}

func TestCreateRejectsEmptyName(t *testing.T) {
	t.Parallel()
	if _, err := Create(context.Background(), t.TempDir(), ""); !sapicerr.Is(err, sapicerr.InvalidInput) {
		t.Fatalf("Create(\"\") error = %v, want InvalidInput", err)
	}
}

func TestListOnMissingDirReturnsEmpty(t *testing.T) {
	t.Parallel()
	list, err := List(context.Background(), t.TempDir()+"/does-not-exist")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("List() = %+v, want empty", list)
	}
}

func TestEditRename(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	doc, _ := Create(ctx, dir, "Staging")

	got, err := Edit(ctx, dir, doc.ID, EditParams{Name: strPtr("Staging v2")})
	if err != nil {
		t.Fatalf("Edit(rename) error = %v", err)
	}
	if got.Metadata.Name != "Staging v2" {
		t.Fatalf("Metadata.Name = %q, want %q", got.Metadata.Name, "Staging v2")
	}
}

func TestEditSetAndClearColor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	doc, _ := Create(ctx, dir, "Staging")

	got, err := Edit(ctx, dir, doc.ID, EditParams{SetColor: strPtr("#ff0000")})
	if err != nil {
		t.Fatalf("Edit(set color) error = %v", err)
	}
	if got.Metadata.Color == nil || *got.Metadata.Color != "#ff0000" {
		t.Fatalf("Metadata.Color = %v, want #ff0000", got.Metadata.Color)
	}

	got, err = Edit(ctx, dir, doc.ID, EditParams{ClearColor: true})
	if err != nil {
		t.Fatalf("Edit(clear color) error = %v", err)
	}
	if got.Metadata.Color != nil {
		t.Fatalf("Metadata.Color = %v, want nil", got.Metadata.Color)
	}
}

func TestEditAddUpdateRemoveVariable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	doc, _ := Create(ctx, dir, "Staging")

	varID := "v1"
	got, err := Edit(ctx, dir, doc.ID, EditParams{
		AddVariables: []AddVariableParams{
			{ID: varID, Name: "BASE_URL", Value: json.RawMessage(`"https://example.com"`), Description: "root url"},
		},
	})
	if err != nil {
		t.Fatalf("Edit(add variable) error = %v", err)
	}
	v, ok := got.Variables[varID]
	if !ok || v.Name != "BASE_URL" || v.Description != "root url" {
		t.Fatalf("Variables[%s] = %+v, ok = %v", varID, v, ok)
	}

	disabled := true
	got, err = Edit(ctx, dir, doc.ID, EditParams{
		UpdateVariables: []UpdateVariableParams{
			{ID: varID, Name: strPtr("API_BASE_URL"), Value: json.RawMessage(`"https://api.example.com"`), Disabled: &disabled},
		},
	})
	if err != nil {
		t.Fatalf("Edit(update variable) error = %v", err)
	}
	v = got.Variables[varID]
	if v.Name != "API_BASE_URL" || string(v.Value) != `"https://api.example.com"` || !v.Disabled {
		t.Fatalf("Variables[%s] after update = %+v", varID, v)
	}

	got, err = Edit(ctx, dir, doc.ID, EditParams{RemoveVariables: []string{varID}})
	if err != nil {
		t.Fatalf("Edit(remove variable) error = %v", err)
	}
	if _, ok := got.Variables[varID]; ok {
		t.Fatalf("Variables[%s] still present after remove", varID)
	}
}

func TestEditRemoveMissingVariableIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	doc, _ := Create(ctx, dir, "Staging")

	if _, err := Edit(ctx, dir, doc.ID, EditParams{RemoveVariables: []string{"does-not-exist"}}); err != nil {
		t.Fatalf("Edit(remove missing variable) error = %v", err)
	}
}

func TestEditUpdateMissingVariableFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	doc, _ := Create(ctx, dir, "Staging")

	_, err := Edit(ctx, dir, doc.ID, EditParams{
		UpdateVariables: []UpdateVariableParams{{ID: "does-not-exist", Name: strPtr("X")}},
	})
	if err == nil {
		t.Fatal("Edit(update missing variable) error = nil, want error")
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	doc, _ := Create(ctx, dir, "Staging")

	if err := Delete(ctx, dir, doc.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := Load(ctx, dir, doc.ID); !sapicerr.Is(err, sapicerr.NotFound) {
		t.Fatalf("Load() after delete error = %v, want NotFound", err)
	}
}
