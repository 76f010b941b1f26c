// Package config handles loading, validation, and merging of amake driver
// settings files.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the settings file looked up when none is specified.
const DefaultFile = "amake.toml"

// Settings is the complete driver configuration.
type Settings struct {
	// Python interpreter used to invoke the build tool
	Python string `toml:"python"`
	// Python module name of the build tool
	Module string `toml:"module"`
	// Tool overrides python/module with an explicit argv prefix. Meant for
	// development and testing against a stand-in tool.
	Tool []string `toml:"tool"`
	// Build directory passed to the tool
	BuildDir string `toml:"buildDir"`
	// Default toolchain name
	Toolchain string `toml:"toolchain"`
	// Log verbosity: quiet, warn, info, debug, trace
	Verbosity string `toml:"verbosity"`
	// Environment overlay applied to every invocation (overlay wins)
	Env map[string]string `toml:"env"`

	Diagnostics DiagnosticsSettings     `toml:"diagnostics"`
	Test        TestSettings            `toml:"test"`
	Verbs       map[string]VerbSettings `toml:"verbs"`
}

// DiagnosticsSettings controls how embedded diagnostics are applied.
type DiagnosticsSettings struct {
	// Include restricts applied diagnostics to paths matching these
	// doublestar globs. Empty means everything.
	Include []string `toml:"include"`
}

// TestSettings configures the test verb.
type TestSettings struct {
	// ReportPath is where the tool writes its JUnit XML report, relative
	// to the working directory.
	ReportPath string `toml:"reportPath"`
}

// VerbSettings holds per-verb extra arguments.
type VerbSettings struct {
	ExtraArgs []string `toml:"extraArgs"`
}

// Load reads a settings file. With an empty path the default file is tried
// and a missing file is not an error; an explicitly named file must exist.
func Load(path string) (*Settings, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultFile
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("settings file not found: %s", path)
		}
		return nil, nil
	}

	var s Settings
	metadata, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	undecoded := metadata.Undecoded()
	if len(undecoded) > 0 {
		var unknown []string
		for _, key := range undecoded {
			unknown = append(unknown, key.String())
		}
		return nil, fmt.Errorf("unknown fields in settings: %s", strings.Join(unknown, ", "))
	}

	return &s, nil
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Python:    "python3",
		Module:    "amake",
		BuildDir:  "build",
		Verbosity: "info",
		Env:       map[string]string{},
		Verbs:     map[string]VerbSettings{},
	}
}

// MergeWithDefaults fills unset fields of s from the defaults. A nil s
// yields the defaults unchanged.
func MergeWithDefaults(s *Settings) Settings {
	defaults := Defaults()

	if s == nil {
		return defaults
	}

	if s.Python == "" {
		s.Python = defaults.Python
	}
	if s.Module == "" {
		s.Module = defaults.Module
	}
	if s.BuildDir == "" {
		s.BuildDir = defaults.BuildDir
	}
	if s.Verbosity == "" {
		s.Verbosity = defaults.Verbosity
	}
	if s.Env == nil {
		s.Env = map[string]string{}
	}
	if s.Verbs == nil {
		s.Verbs = map[string]VerbSettings{}
	}

	return *s
}

// Command resolves the argv used to invoke the tool for a verb: the tool
// prefix (or python -m module), the verb, the toolchain and build
// directory flags, per-verb extra args, then the caller's args.
func (s *Settings) Command(verb string, args ...string) (string, []string) {
	var argv []string
	if len(s.Tool) > 0 {
		argv = append(argv, s.Tool...)
	} else {
		argv = append(argv, s.Python, "-m", s.Module)
	}

	argv = append(argv, verb)
	if s.Toolchain != "" {
		argv = append(argv, "--toolchain", s.Toolchain)
	}
	if s.BuildDir != "" {
		argv = append(argv, "--build-dir", s.BuildDir)
	}
	if vs, ok := s.Verbs[verb]; ok {
		argv = append(argv, vs.ExtraArgs...)
	}
	argv = append(argv, args...)

	return argv[0], argv[1:]
}
