package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSourceURLAbsent(t *testing.T) {
	url, err := ReadSourceURL(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "", url)
}

func TestWriteSourceURLPreservesOtherKeys(t *testing.T) {
	path := writeTemp(t, "hw.yaml", `
i2c:
  volume_i2c_address: 0x49
stations:
  source_url: http://old.example/feed
`)

	require.NoError(t, WriteSourceURL(path, "http://new.example/feed"))

	url, err := ReadSourceURL(path)
	require.NoError(t, err)
	assert.Equal(t, "http://new.example/feed", url)

	// The merge must not clobber unrelated sections.
	tree, err := Load(path)
	require.NoError(t, err)
	addr, ok := get(tree, "i2c")
	require.True(t, ok)
	v, ok := get(addr, "volume_i2c_address")
	require.True(t, ok)
	n, ok := asInt(v)
	require.True(t, ok)
	assert.Equal(t, 0x49, n)
}

func TestWriteSourceURLCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.yaml")
	require.NoError(t, WriteSourceURL(path, "http://example/feed"))

	url, err := ReadSourceURL(path)
	require.NoError(t, err)
	assert.Equal(t, "http://example/feed", url)
}
