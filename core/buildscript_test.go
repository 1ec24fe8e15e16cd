package core

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadBuildScriptJoinsAndTokenizes(t *testing.T) {
	path := writeTemp(t, "build.yaml", "- gcc main.c -o main\n- chmod +x main\n")
	got, err := LoadBuildScript(path)
	if err != nil {
		t.Fatalf("LoadBuildScript: %v", err)
	}
	want := []string{"gcc", "main.c", "-o", "main", "&&", "chmod", "+x", "main"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("LoadBuildScript = %v, want %v", got, want)
	}
}

func TestLoadBuildScriptEmptyIsError(t *testing.T) {
	path := writeTemp(t, "build.yaml", "[]\n")
	if _, err := LoadBuildScript(path); err == nil {
		t.Fatal("expected error for empty build script")
	}
}

func TestLoadBuildScriptMissingFile(t *testing.T) {
	if _, err := LoadBuildScript(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing build script")
	}
}

func TestLoadArgv(t *testing.T) {
	cases := []struct {
		name    string
		path    string
		content string
		want    []string
	}{
		{"simple", "args.txt", "1 2 3\n", []string{"1", "2", "3"}},
		{"extra_whitespace", "args.txt", "  a   b  \n", []string{"a", "b"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeTemp(t, c.path, c.content)
			got, err := LoadArgv(path)
			if err != nil {
				t.Fatalf("LoadArgv: %v", err)
			}
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("LoadArgv = %v, want %v", got, c.want)
			}
		})
	}
}

func TestLoadArgvEmptyPath(t *testing.T) {
	got, err := LoadArgv("")
	if err != nil {
		t.Fatalf("LoadArgv: %v", err)
	}
	if got != nil {
		t.Fatalf("LoadArgv(\"\") = %v, want nil", got)
	}
}

func TestReadOptionalStdin(t *testing.T) {
	root := t.TempDir()
	if got, err := readOptionalStdin(root, nil); err != nil || got != "" {
		t.Fatalf("readOptionalStdin(nil) = %q, %v", got, err)
	}
	empty := ""
	if got, err := readOptionalStdin(root, &empty); err != nil || got != "" {
		t.Fatalf("readOptionalStdin(&\"\") = %q, %v", got, err)
	}
	if err := os.WriteFile(filepath.Join(root, "stdin.txt"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("write stdin fixture: %v", err)
	}
	rel := "stdin.txt"
	if got, err := readOptionalStdin(root, &rel); err != nil || got != "hello\n" {
		t.Fatalf("readOptionalStdin(%q) = %q, %v", rel, got, err)
	}
}

func TestReadRequiredTextMissing(t *testing.T) {
	if _, err := readRequiredText(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing required fixture")
	}
}
