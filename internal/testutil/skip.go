// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"testing"

	"golang.org/x/term"
)

// SkipIfTerminal skips tests that assert non-interactive behavior when the test binary is
// attached to a terminal.
func SkipIfTerminal(t *testing.T) {
	t.Helper()
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		t.Skip("skipping: stdin and stdout are a terminal")
	}
}

// WriteFile writes content to name under a fresh temp dir and returns the path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := t.TempDir() + string(os.PathSeparator) + name
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
