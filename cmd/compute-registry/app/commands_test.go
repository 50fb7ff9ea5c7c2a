package app

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefsPathFlagOverride(t *testing.T) {
	viper.Set("prefs", "/tmp/custom-preferences.yaml")
	defer viper.Reset()

	path, err := prefsPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-preferences.yaml", path)
}

func TestListBootstrapsDefaultServer(t *testing.T) {
	prefs := filepath.Join(t.TempDir(), "preferences.yaml")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"list", "--prefs", prefs})

	require.NoError(t, cmd.Execute())

	// An empty preferences file and no search directory leave exactly the
	// hardcoded default entry.
	assert.Contains(t, out.String(), "openchem-cloud")
}
