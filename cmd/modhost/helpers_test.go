// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/modhost/modhost/internal/config"
)

const kernelManifest = `
version: "1"
units: [
	{name: "kernel.so"},
	{name: "ipc.so", references: ["kernel.so"]},
]
modules: [
	{id: "App", level: 20, depends_on: ["IPC"], description: "application shell"},
	{id: "IPC", unit: "ipc.so", level: 10},
	{id: "Kernel", unit: "kernel.so", level: 0},
]
`

// ansiPattern matches SGR sequences; output is compared without styling.
var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

func stripANSI(s string) string { return ansiPattern.ReplaceAllString(s, "") }

type (
	// stubProvider serves a fixed configuration without touching the filesystem.
	stubProvider struct {
		cfg  *config.Config
		path string
		err  error
	}

	cliResult struct {
		stdout string
		stderr string
		err    error
	}

	// syncBuffer is a bytes.Buffer safe for the concurrent writes of --watch.
	syncBuffer struct {
		mu  sync.Mutex
		buf bytes.Buffer
	}
)

func (s stubProvider) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	cfg := config.DefaultConfig()
	if s.cfg != nil {
		c := *s.cfg
		cfg = &c
	}
	return cfg, nil
}

func (s stubProvider) Path(config.LoadOptions) (string, error) { return s.path, nil }

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return stripANSI(b.buf.String())
}

// runCLI executes the root command with args against provider (defaults when nil).
func runCLI(t *testing.T, provider config.Provider, args ...string) cliResult {
	t.Helper()
	if provider == nil {
		provider = stubProvider{}
	}
	var stdout, stderr bytes.Buffer
	app := NewApp(Dependencies{Config: provider, Stdout: &stdout, Stderr: &stderr})
	root := NewRootCommand(app)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return cliResult{stdout: stripANSI(stdout.String()), stderr: stripANSI(stderr.String()), err: err}
}

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// planOrder extracts module ids from the numbered lines of text plan output.
func planOrder(out string) []string {
	var ids []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && strings.HasSuffix(fields[0], ".") {
			ids = append(ids, fields[1])
		}
	}
	return ids
}

func assertExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != code {
		t.Errorf("exit code = %d, want %d", exitErr.Code, code)
	}
}
