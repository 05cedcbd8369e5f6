package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorReportsReachableMemoryMount(t *testing.T) {
	cfg := writeTestConfig(t)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"--config", cfg, "doctor"})
	require.NoError(t, root.Execute())

	out := buf.String()
	assert.Contains(t, out, "/docs")
	assert.Contains(t, out, "ok")
	assert.NotContains(t, out, "UNREACHABLE")
}
