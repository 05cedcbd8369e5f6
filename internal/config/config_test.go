package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationRoundTrip(t *testing.T) {
	cases := []string{"500ms", "30s", "5m", "2h", "1d", "0ms"}
	for _, c := range cases {
		d, err := ParseDuration(c)
		require.NoError(t, err)
		assert.Equal(t, c, d.String(), "round trip for %s", c)
	}
}

func TestDurationMsPrecedesS(t *testing.T) {
	d, err := ParseDuration("250ms")
	require.NoError(t, err)
	assert.Equal(t, Duration(250000000), d)
}

func TestBytesRoundTrip(t *testing.T) {
	cases := []string{"512b", "10kb", "4mb", "2gb", "1tb"}
	for _, c := range cases {
		b, err := ParseBytes(c)
		require.NoError(t, err)
		assert.Equal(t, c, b.String(), "round trip for %s", c)
	}
}

func TestBytesPicksLargestWholeUnit(t *testing.T) {
	b := Bytes(2048)
	assert.Equal(t, "2kb", b.String())
}

func TestBytesInvalidSuffix(t *testing.T) {
	_, err := ParseBytes("100xb")
	assert.Error(t, err)
}

func TestLoadValidDocument(t *testing.T) {
	yamlDoc := `
backends:
  local:
    type: fs
    root: /data
mounts:
  - path: /docs
    backend: local
    mode: local_indexed
    index: true
defaults:
  sync:
    flush_interval: 1s
    cache_entries: 1000
`
	doc, err := Load(strings.NewReader(yamlDoc))
	require.NoError(t, err)
	require.Len(t, doc.Mounts, 1)
	assert.Equal(t, Duration(0), doc.Mounts[0].Sync.FlushInterval-doc.Defaults.Sync.FlushInterval)
	assert.EqualValues(t, 1000, doc.Mounts[0].Sync.CacheEntries)
}

func TestLoadRejectsUndeclaredBackend(t *testing.T) {
	yamlDoc := `
backends:
  local:
    type: fs
    root: /data
mounts:
  - path: /docs
    backend: missing
`
	_, err := Load(strings.NewReader(yamlDoc))
	assert.Error(t, err)
}

func TestLoadRejectsDuplicateMountPath(t *testing.T) {
	yamlDoc := `
backends:
  a:
    type: memory
mounts:
  - path: /x
    backend: a
  - path: /x
    backend: a
`
	_, err := Load(strings.NewReader(yamlDoc))
	assert.Error(t, err)
}

func TestResolveSyncModeAsyncEscalation(t *testing.T) {
	mode, err := ResolveSyncMode("write_through", true)
	require.NoError(t, err)
	assert.Equal(t, "write_back", mode)

	mode, err = ResolveSyncMode("write_through", false)
	require.NoError(t, err)
	assert.Equal(t, "write_through", mode)
}

func TestResolveSyncModeUnknown(t *testing.T) {
	_, err := ResolveSyncMode("bogus", false)
	assert.Error(t, err)
}
