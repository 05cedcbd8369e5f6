package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
backends:
  docs:
    type: memory
mounts:
  - path: /docs
    backend: docs
    mode: local
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "openfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o644))
	return path
}

func TestCatMissingFileErrors(t *testing.T) {
	cfg := writeTestConfig(t)

	root := NewRootCmd()
	root.SetArgs([]string{"--config", cfg, "cat", "/docs/missing.txt"})
	err := root.Execute()
	require.Error(t, err, "reading a file that was never written should fail")
}

func TestLsEmptyMount(t *testing.T) {
	cfg := writeTestConfig(t)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"--config", cfg, "ls", "/docs"})
	require.NoError(t, root.Execute())
}

func TestStatOnMissingPathErrors(t *testing.T) {
	cfg := writeTestConfig(t)

	root := NewRootCmd()
	root.SetArgs([]string{"--config", cfg, "stat", "/docs/nope.txt"})
	require.Error(t, root.Execute())
}
