// Package config defines the server configuration value type and its
// round-trip forms: the opaque preference record and the legacy YAML block.
package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Protocol values accepted for a server entry.
const (
	ProtocolLocal = "local"
	ProtocolSSH   = "ssh"
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"
)

// Record is the opaque form a ServerConfig takes inside the preferences
// document. The store treats it as an ordered list of these; only this
// package knows the field layout.
type Record = map[string]any

// ServerConfig fully describes one remote compute server. The Name field is
// the entry's natural key within a registry; every other field is free-form
// connection detail consumed by the transport layer.
type ServerConfig struct {
	Name             string `yaml:"name" mapstructure:"name"`
	Host             string `yaml:"host" mapstructure:"host"`
	Protocol         string `yaml:"protocol" mapstructure:"protocol"`
	Port             int    `yaml:"port" mapstructure:"port"`
	Username         string `yaml:"username,omitempty" mapstructure:"username"`
	Authentication   string `yaml:"authentication,omitempty" mapstructure:"authentication"`
	WorkingDirectory string `yaml:"workingDirectory,omitempty" mapstructure:"workingDirectory"`
	QueueSystem      string `yaml:"queueSystem,omitempty" mapstructure:"queueSystem"`
}

// Default returns the built-in fallback entry used when neither the
// preferences document nor the search directory yields any server.
func Default() ServerConfig {
	return ServerConfig{
		Name:     "openchem-cloud",
		Host:     "cloud.openchem.org",
		Protocol: ProtocolHTTPS,
		Port:     443,
	}
}

// FromRecord reconstructs a ServerConfig from its preference-record form.
// Returns an error if the record cannot be decoded, names no server, or
// carries an unknown protocol; callers treat that as a load failure for the
// whole list.
func FromRecord(rec Record) (ServerConfig, error) {
	var cfg ServerConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ServerConfig{}, fmt.Errorf("failed to build record decoder: %w", err)
	}
	if err := dec.Decode(rec); err != nil {
		return ServerConfig{}, fmt.Errorf("failed to decode server record: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// ToRecord converts the configuration to its preference-record form.
// FromRecord(cfg.ToRecord()) reproduces cfg setting-for-setting.
func (c ServerConfig) ToRecord() Record {
	rec := Record{
		"name":     c.Name,
		"host":     c.Host,
		"protocol": c.Protocol,
		"port":     c.Port,
	}
	if c.Username != "" {
		rec["username"] = c.Username
	}
	if c.Authentication != "" {
		rec["authentication"] = c.Authentication
	}
	if c.WorkingDirectory != "" {
		rec["workingDirectory"] = c.WorkingDirectory
	}
	if c.QueueSystem != "" {
		rec["queueSystem"] = c.QueueSystem
	}
	return rec
}

// FromYAMLNode builds a ServerConfig from a parsed legacy configuration
// block. The block is a YAML mapping using the same field names as the
// native form.
func FromYAMLNode(node *yaml.Node) (ServerConfig, error) {
	if node == nil {
		return ServerConfig{}, fmt.Errorf("configuration block cannot be nil")
	}
	var cfg ServerConfig
	if err := node.Decode(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("failed to decode configuration block: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// Validate checks the configuration is complete enough to register.
func (c ServerConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("server name is required")
	}
	switch c.Protocol {
	case "", ProtocolLocal, ProtocolSSH, ProtocolHTTP, ProtocolHTTPS:
	default:
		return fmt.Errorf("unknown protocol %q for server %s", c.Protocol, c.Name)
	}
	if c.Protocol != "" && c.Protocol != ProtocolLocal && c.Host == "" {
		return fmt.Errorf("host is required for %s server %s", c.Protocol, c.Name)
	}
	return nil
}

// Address returns the host:port dial target for remote protocols.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
