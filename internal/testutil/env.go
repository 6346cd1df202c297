// Package testutil provides helpers for running the installer in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Environment variables the installer reads. Duplicated here so the helper
// does not depend on the packages under test.
const (
	envSkipInstall = "NODE_JQ_SKIP_INSTALL_BINARY"
	envConfigFile  = "JQ_INSTALL_CONFIG"
)

// SetupTestEnv isolates a test from the caller's environment and returns a
// fresh package root.
//
// The skip flag and config file variables are cleared so a developer's
// shell cannot change test outcomes, and TMPDIR points inside the test's
// temp directory so scratch build directories can be inspected. Everything
// is restored or removed by the testing framework.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	for _, key := range []string{envSkipInstall, envConfigFile} {
		// t.Setenv records the old value for restoration
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}

	scratch := filepath.Join(tmpDir, "tmp")
	packageRoot := filepath.Join(tmpDir, "node_modules", "node-jq")

	for _, dir := range []string{scratch, packageRoot} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	t.Setenv("TMPDIR", scratch)

	return packageRoot
}

// ScratchDir returns the TMPDIR set by SetupTestEnv.
func ScratchDir(t *testing.T) string {
	t.Helper()
	return os.Getenv("TMPDIR")
}
