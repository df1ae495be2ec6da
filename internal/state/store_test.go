package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "radio-state"))
}

func TestReadMissingFile(t *testing.T) {
	s := newTestStore(t)
	record, err := s.Read()
	require.NoError(t, err)
	assert.Empty(t, record)
}

func TestReadStrictMissingFile(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ReadStrict()
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestReadParsing(t *testing.T) {
	s := newTestStore(t)
	content := "# state written by radio-controls\n" +
		"\n" +
		"current_bank = 2\n" +
		"station_name=BBC World Service\n" +
		"not a pair\n" +
		"last_volume=40\n" +
		"last_volume=65\n"
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o644))

	record, err := s.Read()
	require.NoError(t, err)
	assert.Len(t, record, 3)
	assert.Equal(t, "2", record[KeyCurrentBank])
	assert.Equal(t, "BBC World Service", record[KeyStationName])
	// Last duplicate wins.
	assert.Equal(t, "65", record[KeyLastVolume])
}

func TestWriteMergesWithExisting(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write(map[string]any{
		KeyCurrentBank:    1,
		KeyCurrentStation: 4,
	}))
	require.NoError(t, s.Write(map[string]any{
		KeyLastVolume: 70,
	}))

	record, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "1", record[KeyCurrentBank])
	assert.Equal(t, "4", record[KeyCurrentStation])
	assert.Equal(t, "70", record[KeyLastVolume])
}

func TestWriteOverwritesKey(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write(map[string]any{KeyPlaybackState: "playing"}))
	require.NoError(t, s.Write(map[string]any{KeyPlaybackState: "stopped"}))

	record, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "stopped", record[KeyPlaybackState])
}

func TestRecordAccessors(t *testing.T) {
	r := Record{
		KeyCurrentBank: " 3 ",
		KeyBankName:    "News",
		KeyLastVolume:  "loud",
	}

	assert.Equal(t, "News", r.Get(KeyBankName, "fallback"))
	assert.Equal(t, "fallback", r.Get(KeyStationName, "fallback"))

	assert.Equal(t, 3, r.GetInt(KeyCurrentBank, 0))
	assert.Equal(t, 50, r.GetInt(KeyLastVolume, 50))
	assert.Equal(t, 50, r.GetInt(KeyCurrentStation, 50))
}
