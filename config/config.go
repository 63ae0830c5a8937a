// Package config defines the settings a host process uses to open one
// or more logging modules, plus a YAML bundle loader for hosts that
// want to declare several modules at process startup in one file.
//
// Settings documents are decoded with gopkg.in/yaml.v2, the same
// library crypt uses for key-file serialization.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/kernelflux/aether/crypt"
	"github.com/kernelflux/aether/record"
)

// Mode selects whether writes block until durable (Sync) or are
// batched and flushed by the background flusher (Async).
type Mode int

const (
	ModeAsync Mode = iota
	ModeSync
)

// ModuleConfig describes one named logging module.
type ModuleConfig struct {
	Name       string `yaml:"name"`
	LogDir     string `yaml:"log_dir"`
	CacheDir   string `yaml:"cache_dir"`
	NamePrefix string `yaml:"name_prefix"`

	Compress  bool             `yaml:"is_compress"`
	PubKey    *crypt.PublicKey `yaml:"-"`
	PubKeyRaw []byte           `yaml:"pub_key"`

	CacheDays int             `yaml:"cache_days"`
	Level     record.Severity `yaml:"level"`
	Mode      Mode            `yaml:"mode"`

	MaxFileSize  int64         `yaml:"max_file_size"`
	MaxAliveTime time.Duration `yaml:"max_alive_time"`

	// SyncCoalesce opts a Sync-mode module back into buffering writes
	// instead of flushing after every single one.
	SyncCoalesce bool `yaml:"sync_coalesce"`

	ConsoleLogOpen bool `yaml:"console_log_open"`

	CustomHeaderInfo []string `yaml:"custom_header_info"`
}

// Validate enforces the minimum a ModuleConfig needs before Open will
// even attempt any I/O: a destination directory and a file-name prefix.
func (c *ModuleConfig) Validate() error {
	if c.LogDir == "" {
		return fmt.Errorf("config: log_dir is required")
	}
	if c.NamePrefix == "" {
		return fmt.Errorf("config: name_prefix is required")
	}
	if c.CacheDays < 0 {
		return fmt.Errorf("config: cache_days must not be negative")
	}
	return nil
}

// resolvePubKey materializes PubKey from PubKeyRaw if the latter was
// set by YAML decoding and the former was not set programmatically.
func (c *ModuleConfig) resolvePubKey() error {
	if c.PubKey != nil || len(c.PubKeyRaw) == 0 {
		return nil
	}
	pk, err := crypt.LoadPublicKey(c.PubKeyRaw)
	if err != nil {
		return fmt.Errorf("config: %s: %w", c.Name, err)
	}
	c.PubKey = pk
	return nil
}

// Bundle is the top-level shape of a multi-module YAML config file.
type Bundle struct {
	Modules     []ModuleConfig  `yaml:"modules"`
	GlobalLevel record.Severity `yaml:"global_level"`
}

// Load reads and validates a YAML bundle from path.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML bundle already in memory.
func Parse(data []byte) (*Bundle, error) {
	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("config: parse bundle: %w", err)
	}
	for i := range b.Modules {
		if err := b.Modules[i].Validate(); err != nil {
			return nil, err
		}
		if err := b.Modules[i].resolvePubKey(); err != nil {
			return nil, err
		}
	}
	return &b, nil
}
