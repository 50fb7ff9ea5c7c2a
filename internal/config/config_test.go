package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := ServerConfig{
		Name:             "cluster-a",
		Host:             "hpc.example.org",
		Protocol:         ProtocolSSH,
		Port:             22,
		Username:         "jsmith",
		WorkingDirectory: "/scratch/jsmith",
		QueueSystem:      "slurm",
	}

	got, err := FromRecord(cfg.ToRecord())
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestFromRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		record        Record
		errorContains string
	}{
		{
			name: "success - minimal record",
			record: Record{
				"name": "local",
			},
		},
		{
			name: "success - weakly typed port",
			record: Record{
				"name":     "cluster",
				"host":     "hpc.example.org",
				"protocol": "ssh",
				"port":     "22",
			},
		},
		{
			name: "success - lowercased keys from the preferences store",
			record: Record{
				"name":             "cluster",
				"host":             "hpc.example.org",
				"protocol":         "ssh",
				"port":             22,
				"workingdirectory": "/scratch",
			},
		},
		{
			name:          "failure - missing name",
			record:        Record{"host": "hpc.example.org"},
			errorContains: "name is required",
		},
		{
			name: "failure - unknown protocol",
			record: Record{
				"name":     "cluster",
				"host":     "hpc.example.org",
				"protocol": "gopher",
			},
			errorContains: "unknown protocol",
		},
		{
			name: "failure - remote protocol without host",
			record: Record{
				"name":     "cluster",
				"protocol": "ssh",
			},
			errorContains: "host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := FromRecord(tt.record)
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.record["name"], cfg.Name)
		})
	}
}

func TestFromYAMLNode(t *testing.T) {
	t.Parallel()

	var doc yaml.Node
	err := yaml.Unmarshal([]byte(`
name: legacy-cluster
host: legacy.example.org
protocol: ssh
port: 22
workingDirectory: /home/runs
`), &doc)
	require.NoError(t, err)

	cfg, err := FromYAMLNode(&doc)
	require.NoError(t, err)
	assert.Equal(t, "legacy-cluster", cfg.Name)
	assert.Equal(t, "legacy.example.org", cfg.Host)
	assert.Equal(t, "/home/runs", cfg.WorkingDirectory)
}

func TestFromYAMLNodeNil(t *testing.T) {
	t.Parallel()

	_, err := FromYAMLNode(nil)
	require.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.Name)
}

func TestAddress(t *testing.T) {
	t.Parallel()

	cfg := ServerConfig{Host: "hpc.example.org", Port: 8443}
	assert.Equal(t, "hpc.example.org:8443", cfg.Address())
}
