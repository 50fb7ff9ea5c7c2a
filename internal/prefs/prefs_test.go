package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openchem/compute-registry/internal/config"
)

func TestMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(filepath.Join(t.TempDir(), "preferences.yaml"))
	require.NoError(t, err)

	records, err := store.ServerConfigurationList()
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, store.ServerDirectory())
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preferences.yaml")

	store, err := NewFileStore(path)
	require.NoError(t, err)

	first := config.ServerConfig{Name: "cluster-a", Host: "a.example.org", Protocol: config.ProtocolSSH, Port: 22}
	second := config.ServerConfig{Name: "cluster-b", Host: "b.example.org", Protocol: config.ProtocolHTTPS, Port: 443}
	require.NoError(t, store.SetServerConfigurationList([]config.Record{
		first.ToRecord(),
		second.ToRecord(),
	}))

	// A fresh store over the same file must see the same ordered list.
	reloaded, err := NewFileStore(path)
	require.NoError(t, err)

	records, err := reloaded.ServerConfigurationList()
	require.NoError(t, err)
	require.Len(t, records, 2)

	gotFirst, err := config.FromRecord(records[0])
	require.NoError(t, err)
	gotSecond, err := config.FromRecord(records[1])
	require.NoError(t, err)
	assert.Equal(t, first, gotFirst)
	assert.Equal(t, second, gotSecond)
}

func TestSetReplacesListInFull(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preferences.yaml")

	store, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.SetServerConfigurationList([]config.Record{
		{"name": "one"}, {"name": "two"},
	}))
	require.NoError(t, store.SetServerConfigurationList([]config.Record{
		{"name": "three"},
	}))

	reloaded, err := NewFileStore(path)
	require.NoError(t, err)
	records, err := reloaded.ServerConfigurationList()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "three", records[0]["name"])
}

func TestServerDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preferences.yaml")
	require.NoError(t, os.WriteFile(path, []byte("serverDirectory: /opt/openchem/servers\n"), 0600))

	store, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/openchem/servers", store.ServerDirectory())
}

func TestCorruptPreferencesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preferences.yaml")
	require.NoError(t, os.WriteFile(path, []byte("servers: [unclosed\n"), 0600))

	_, err := NewFileStore(path)
	require.Error(t, err)
}

func TestMalformedServerList(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preferences.yaml")
	require.NoError(t, os.WriteFile(path, []byte("servers: not-a-list\n"), 0600))

	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = store.ServerConfigurationList()
	require.Error(t, err)
}
