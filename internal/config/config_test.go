package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amake.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidSettings(t *testing.T) {
	path := writeSettings(t, `
python = "python3.12"
toolchain = "gcc-13"
verbosity = "debug"

[env]
CC = "gcc"

[diagnostics]
include = ["src/**/*.cpp"]

[verbs.code]
extraArgs = ["--jobs", "8"]
`)

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Python != "python3.12" {
		t.Errorf("python = %q", s.Python)
	}
	if s.Toolchain != "gcc-13" {
		t.Errorf("toolchain = %q", s.Toolchain)
	}
	if s.Env["CC"] != "gcc" {
		t.Errorf("env = %v", s.Env)
	}
	if !reflect.DeepEqual(s.Verbs["code"].ExtraArgs, []string{"--jobs", "8"}) {
		t.Errorf("extraArgs = %v", s.Verbs["code"].ExtraArgs)
	}
}

func TestLoadUnknownFieldRejected(t *testing.T) {
	path := writeSettings(t, `bogusField = true`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unknown fields") {
		t.Errorf("expected unknown-field error, got %v", err)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Error("expected error for explicitly named missing file")
	}
}

func TestLoadDefaultMissingFileIsNil(t *testing.T) {
	cwd, _ := os.Getwd()
	defer func() { _ = os.Chdir(cwd) }()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	s, err := Load("")
	if err != nil {
		t.Fatalf("missing default file must not error: %v", err)
	}
	if s != nil {
		t.Error("expected nil settings for missing default file")
	}
}

func TestMergeWithDefaults(t *testing.T) {
	merged := MergeWithDefaults(nil)
	if merged.Python != "python3" || merged.Module != "amake" {
		t.Errorf("defaults = %+v", merged)
	}

	partial := &Settings{Python: "pypy"}
	merged = MergeWithDefaults(partial)
	if merged.Python != "pypy" {
		t.Error("explicit value overwritten by defaults")
	}
	if merged.Module != "amake" {
		t.Error("unset value not filled from defaults")
	}
}

func TestCommandResolution(t *testing.T) {
	s := MergeWithDefaults(&Settings{
		Toolchain: "clang",
		Verbs:     map[string]VerbSettings{"code": {ExtraArgs: []string{"--jobs", "4"}}},
	})

	name, args := s.Command("code", "mytarget")
	if name != "python3" {
		t.Errorf("name = %q", name)
	}
	want := []string{"-m", "amake", "code", "--toolchain", "clang", "--build-dir", "build", "--jobs", "4", "mytarget"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestCommandToolOverride(t *testing.T) {
	s := MergeWithDefaults(&Settings{Tool: []string{"/bin/sh", "stub.sh"}})

	name, args := s.Command("configure")
	if name != "/bin/sh" {
		t.Errorf("name = %q", name)
	}
	want := []string{"stub.sh", "configure", "--build-dir", "build"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestCommandCustomBuildDir(t *testing.T) {
	s := MergeWithDefaults(&Settings{BuildDir: "out/debug"})

	_, args := s.Command("configure")
	want := []string{"-m", "amake", "configure", "--build-dir", "out/debug"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		settings  Settings
		wantValid bool
	}{
		{
			name:      "empty is valid",
			settings:  Settings{},
			wantValid: true,
		},
		{
			name:      "bad verbosity",
			settings:  Settings{Verbosity: "loud"},
			wantValid: false,
		},
		{
			name:      "bad glob",
			settings:  Settings{Diagnostics: DiagnosticsSettings{Include: []string{"[unclosed"}}},
			wantValid: false,
		},
		{
			name:      "good glob",
			settings:  Settings{Diagnostics: DiagnosticsSettings{Include: []string{"src/**/*.c"}}},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(&tt.settings)
			if result.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v (errors: %v)", result.Valid, tt.wantValid, result.Errors)
			}
		})
	}
}

func TestValidateWarnsUnknownVerb(t *testing.T) {
	result := Validate(&Settings{Verbs: map[string]VerbSettings{"deploy": {}}})
	if !result.Valid {
		t.Error("unknown verb should be a warning, not an error")
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %v, want one", result.Warnings)
	}
}
