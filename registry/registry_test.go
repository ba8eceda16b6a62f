package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func noopHandler(ctx context.Context, input json.RawMessage, meta *CallContext) (interface{}, error) {
	return nil, nil
}

func TestBuild_Lookup(t *testing.T) {
	m := Manifest{
		"users": RouterFunc{
			"get":  {Handler: noopHandler},
			"list": {Handler: noopHandler},
		},
		"admin": Manifest{
			"audit": RouterFunc{
				"tail": {Handler: noopHandler},
			},
		},
	}

	r, err := Build(m, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.Len() != 3 {
		t.Errorf("Len = %d, want 3", r.Len())
	}

	entry, werr := r.Lookup([]string{"admin", "audit", "tail"})
	if werr != nil {
		t.Fatalf("Lookup: %v", werr)
	}
	if got := len(entry.Path); got != 3 {
		t.Errorf("entry path depth = %d", got)
	}

	// memoized second lookup resolves identically
	again, werr := r.Lookup([]string{"admin", "audit", "tail"})
	if werr != nil || again != entry {
		t.Errorf("memoized lookup = %v, %v", again, werr)
	}
}

func TestLookup_NotFound(t *testing.T) {
	r, err := Build(Manifest{"a": RouterFunc{"b": {Handler: noopHandler}}}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, path := range [][]string{
		{"a", "missing"},
		{"nope"},
		{"a"}, // namespace, not a route
		{"a", "b", "deeper"},
	} {
		if _, werr := r.Lookup(path); werr == nil {
			t.Errorf("Lookup(%v): expected NotFound", path)
		}
	}
}

func TestBuild_RejectsInvalidLeaves(t *testing.T) {
	cases := map[string]Manifest{
		"non-router leaf":   {"a": "not a router"},
		"nil entry":         {"a": nil},
		"nil handler":       {"a": RouterFunc{"b": {Handler: nil}}},
		"empty route name":  {"a": RouterFunc{"": {Handler: noopHandler}}},
		"dotted route name": {"a": RouterFunc{"b.c": {Handler: noopHandler}}},
		"empty namespace":   {"": RouterFunc{"b": {Handler: noopHandler}}},
		"empty router":      {"a": RouterFunc{}},
		"empty manifest":    {},
		"bad upload mode": {"a": RouterFunc{
			"up": {Handler: noopHandler, Upload: &UploadConfig{Mode: "zip"}},
		}},
	}

	for name, m := range cases {
		if _, err := Build(m, zerolog.Nop()); err == nil {
			t.Errorf("%s: Build succeeded, expected fatal validation error", name)
		}
	}
}

func TestBuild_DuplicatePath(t *testing.T) {
	m := Manifest{
		"users": Merge{
			RouterFunc{"get": {Handler: noopHandler}},
			RouterFunc{"get": {Handler: noopHandler}},
		},
	}

	_, err := Build(m, zerolog.Nop())
	if err == nil {
		t.Fatal("Build succeeded with duplicate path")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T", err)
	}
	if verr.Path != "users.get" {
		t.Errorf("offending path = %q, want users.get", verr.Path)
	}
}

func TestBuild_MergeDistinctRoutes(t *testing.T) {
	m := Manifest{
		"users": Merge{
			RouterFunc{"get": {Handler: noopHandler}},
			RouterFunc{"list": {Handler: noopHandler}},
		},
	}

	r, err := Build(m, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
}

func TestBuild_UploadConfig(t *testing.T) {
	m := Manifest{
		"files": RouterFunc{
			"upload": {Handler: noopHandler, Upload: &UploadConfig{Mode: UploadModeFile, MaxFileSize: 1 << 20}},
		},
	}

	r, err := Build(m, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	entry, werr := r.Lookup([]string{"files", "upload"})
	if werr != nil {
		t.Fatalf("Lookup: %v", werr)
	}
	if entry.Upload == nil || entry.Upload.Mode != UploadModeFile {
		t.Errorf("upload config = %+v", entry.Upload)
	}
}
