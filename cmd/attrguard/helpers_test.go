package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// testEnv is a temporary config, report and history location.
type testEnv struct {
	dir        string
	configPath string
	reportDir  string
	dbDir      string
}

// newTestEnv writes a config selecting the simulated scanner without latency,
// so commands never touch the user's real directories or a browser.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "attrguard.yaml"),
		reportDir:  filepath.Join(dir, "reports"),
		dbDir:      filepath.Join(dir, "db"),
	}
	content := fmt.Sprintf(`mode: simulated
outputDir: %q
dbDir: %q
seed: 7
simulated:
  minLatency: 0s
  maxLatency: 0s
`, env.reportDir, env.dbDir)
	if err := os.WriteFile(env.configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return env
}

// run executes the root command with --config pointing at the env.
func (e testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--config", e.configPath))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
