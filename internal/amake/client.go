// Package amake is a thin discovery client for the amake build tool.
// Unlike the streaming executor it captures stdout wholesale: the
// discovery verbs print a single JSON document, not protocol lines.
package amake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Garcia6l20/amake-go/internal/config"
)

// Target is one buildable target known to the tool.
type Target struct {
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
	Output string `json:"output,omitempty"`
}

// Toolchain is one toolchain the tool can build with.
type Toolchain struct {
	Name     string `json:"name"`
	Compiler string `json:"compiler,omitempty"`
	Version  string `json:"version,omitempty"`
}

// Test is one runnable test case.
type Test struct {
	Name     string `json:"name"`
	Fullname string `json:"fullname,omitempty"`
	Target   string `json:"target,omitempty"`
}

// Option is one configurable build option with its current value.
type Option struct {
	Name    string `json:"name"`
	Value   string `json:"value,omitempty"`
	Default string `json:"default,omitempty"`
	Help    string `json:"help,omitempty"`
}

// Client invokes the tool's discovery verbs.
type Client struct {
	settings *config.Settings
	dir      string
}

// NewClient returns a client resolving argv from the settings and running
// from dir (empty means the current directory).
func NewClient(settings *config.Settings, dir string) *Client {
	return &Client{settings: settings, dir: dir}
}

// Targets lists the buildable targets.
func (c *Client) Targets(ctx context.Context) ([]Target, error) {
	var out []Target
	return out, c.query(ctx, "get-targets", &out)
}

// Toolchains lists the toolchains available on this machine.
func (c *Client) Toolchains(ctx context.Context) ([]Toolchain, error) {
	var out []Toolchain
	return out, c.query(ctx, "get-toolchains", &out)
}

// Tests lists the runnable test cases.
func (c *Client) Tests(ctx context.Context) ([]Test, error) {
	var out []Test
	return out, c.query(ctx, "get-tests", &out)
}

// Options lists the build options and their current values.
func (c *Client) Options(ctx context.Context) ([]Option, error) {
	var out []Option
	return out, c.query(ctx, "get-options", &out)
}

// BuildFiles lists the build definition files the project is made of.
func (c *Client) BuildFiles(ctx context.Context) ([]string, error) {
	var out []string
	return out, c.query(ctx, "get-buildfiles", &out)
}

// query runs one discovery verb and decodes its stdout into out. Stderr
// is captured separately and folded into the error on failure.
func (c *Client) query(ctx context.Context, verb string, out any) error {
	name, args := c.settings.Command(verb)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = c.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", verb, err, msg)
		}
		return fmt.Errorf("%s: %w", verb, err)
	}

	payload := bytes.TrimSpace(stdout.Bytes())
	if len(payload) == 0 {
		return fmt.Errorf("%s: tool produced no output", verb)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%s: decoding tool output: %w", verb, err)
	}
	return nil
}
