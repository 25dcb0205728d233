package patch

import (
	"encoding/json"
	"testing"
)

func mustJSON(t *testing.T, v string) json.RawMessage {
	t.Helper()
	return json.RawMessage(v)
}

func TestApplyOrderedAddThenReplace(t *testing.T) {
	t.Parallel()

	doc := []byte(`{"metadata":{"name":"old"}}`)
	ops := []Op{
		{Kind: Add, Path: "/metadata/description", Value: mustJSON(t, `"first"`)},
		{Kind: Replace, Path: "/metadata/description", Value: mustJSON(t, `"second"`)},
	}

	out, err := Apply(doc, ops)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	var got map[string]map[string]string
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["metadata"]["description"] != "second" {
		t.Fatalf("description = %q, want %q", got["metadata"]["description"], "second")
	}
}

func TestApplyCreateMissingSegments(t *testing.T) {
	t.Parallel()

	doc := []byte(`{}`)
	ops := []Op{
		{Kind: Add, Path: "/url/protocol", Value: mustJSON(t, `"Get"`), CreateMissingSegments: true},
	}

	out, err := Apply(doc, ops)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	var got map[string]map[string]string
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["url"]["protocol"] != "Get" {
		t.Fatalf("url.protocol = %q, want Get", got["url"]["protocol"])
	}
}

func TestApplyReplaceWithCreateMissingSegmentsActsAsAdd(t *testing.T) {
	t.Parallel()

	doc := []byte(`{}`)
	ops := []Op{
		{Kind: Replace, Path: "/url/protocol", Value: mustJSON(t, `"Post"`), CreateMissingSegments: true},
	}

	out, err := Apply(doc, ops)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	var got map[string]map[string]string
	_ = json.Unmarshal(out, &got)
	if got["url"]["protocol"] != "Post" {
		t.Fatalf("url.protocol = %q, want Post", got["url"]["protocol"])
	}
}

func TestApplyIgnoreIfNotExistsSkipsRemove(t *testing.T) {
	t.Parallel()

	doc := []byte(`{"metadata":{"name":"x"}}`)
	ops := []Op{
		{Kind: Remove, Path: "/metadata/missing", IgnoreIfNotExists: true},
	}

	out, err := Apply(doc, ops)
	if err != nil {
		t.Fatalf("Apply() error = %v, want nil (op should be skipped)", err)
	}

	var got map[string]map[string]string
	_ = json.Unmarshal(out, &got)
	if got["metadata"]["name"] != "x" {
		t.Fatalf("document was mutated by skipped op: %s", out)
	}
}

func TestApplyFirstFailingOpAborts(t *testing.T) {
	t.Parallel()

	doc := []byte(`{"metadata":{"name":"x"}}`)
	ops := []Op{
		{Kind: Remove, Path: "/metadata/missing"}, // no tolerance flag
		{Kind: Replace, Path: "/metadata/name", Value: mustJSON(t, `"y"`)},
	}

	_, err := Apply(doc, ops)
	if err == nil {
		t.Fatal("Apply() error = nil, want error on first failing op")
	}
}

func TestApplyRemove(t *testing.T) {
	t.Parallel()

	doc := []byte(`{"headers":[{"name":"1","value":"1"}]}`)
	ops := []Op{
		{Kind: Remove, Path: "/headers/0"},
	}

	out, err := Apply(doc, ops)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	var got map[string][]any
	_ = json.Unmarshal(out, &got)
	if len(got["headers"]) != 0 {
		t.Fatalf("headers = %v, want empty", got["headers"])
	}
}

func TestPointerEscapesSpecialChars(t *testing.T) {
	t.Parallel()

	got := Pointer("metadata", "a/b~c")
	want := "/metadata/a~1b~0c"
	if got != want {
		t.Fatalf("Pointer() = %q, want %q", got, want)
	}
}

func TestCompactRemovesWhitespace(t *testing.T) {
	t.Parallel()

	out, err := Compact([]byte("{\n  \"a\": 1\n}\n"))
	if err != nil {
		t.Fatalf("Compact() error = %v", err)
	}
	if string(out) != `{"a":1}` {
		t.Fatalf("Compact() = %s, want {\"a\":1}", out)
	}
}
