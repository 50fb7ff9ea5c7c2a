// Package prefs provides the process-wide preferences document backing the
// registry: the persisted server list and the legacy server search
// directory.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/openchem/compute-registry/internal/config"
)

const (
	keyServerList      = "servers"
	keyServerDirectory = "serverDirectory"
)

// Store is the preferences contract the registry consumes. Records are
// opaque here; config.FromRecord / ToRecord define the layout.
type Store interface {
	// ServerConfigurationList returns the persisted server records in
	// display order. An absent key yields an empty list, not an error.
	ServerConfigurationList() ([]config.Record, error)

	// SetServerConfigurationList replaces the persisted list in full.
	SetServerConfigurationList(records []config.Record) error

	// ServerDirectory returns the directory searched for legacy .cfg
	// files, or "" if none is configured.
	ServerDirectory() string
}

// fileStore implements Store on top of a viper-managed YAML document.
type fileStore struct {
	path string
	v    *viper.Viper
}

var _ Store = (*fileStore)(nil)

// NewFileStore opens (or lazily creates) the preferences document at path.
// A missing file is treated as an empty document.
func NewFileStore(path string) (Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault(keyServerDirectory, "")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read preferences file %s: %w", path, err)
		}
	}

	return &fileStore{path: path, v: v}, nil
}

// ServerConfigurationList implements Store.
func (f *fileStore) ServerConfigurationList() ([]config.Record, error) {
	raw := f.v.Get(keyServerList)
	if raw == nil {
		return []config.Record{}, nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("preferences key %q is not a list", keyServerList)
	}

	records := make([]config.Record, 0, len(list))
	for i, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("preferences key %q: entry %d is not a record", keyServerList, i)
		}
		records = append(records, rec)
	}
	return records, nil
}

// SetServerConfigurationList implements Store. The document is rewritten in
// full through a temporary file so a failed save never leaves a truncated
// preferences file, with a flock guarding against a concurrent process.
func (f *fileStore) SetServerConfigurationList(records []config.Record) error {
	f.v.Set(keyServerList, records)

	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	lock := flock.New(f.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock preferences file: %w", err)
	}
	defer lock.Unlock()

	data, err := yaml.Marshal(f.v.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to replace preferences file: %w", err)
	}
	return nil
}

// ServerDirectory implements Store.
func (f *fileStore) ServerDirectory() string {
	return f.v.GetString(keyServerDirectory)
}
