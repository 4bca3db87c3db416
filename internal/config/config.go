// Package config loads and saves the server's settings.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// BackupConfig controls the scheduled room-backup job (internal/maintenance).
type BackupConfig struct {
	Enabled bool      `json:"enabled,omitempty"`
	Cron    string    `json:"cron,omitempty"`
	Dir     string    `json:"dir,omitempty"`
	S3      *S3Config `json:"s3,omitempty"`
}

type S3Config struct {
	Bucket   string `json:"bucket"`
	Region   string `json:"region"`
	Endpoint string `json:"endpoint,omitempty"`
}

// PreviewSystemConfig mirrors spec.md's preview_system.process_all_at_start.
type PreviewSystemConfig struct {
	ProcessAllAtStart bool `json:"process_all_at_start,omitempty"`
}

// Config is the on-disk shape of settings.json.
type Config struct {
	ListenIP           string   `json:"listen_ip"`
	ListenPort         uint16   `json:"listen_port"`
	AutosaveIntervalMs uint32   `json:"autosave_interval_ms"`
	PluginList         []string `json:"plugin_list,omitempty"`

	PreviewSystem PreviewSystemConfig `json:"preview_system"`

	AdminPassword string `json:"admin_password,omitempty"`
	EnableConsole bool   `json:"enable_console,omitempty"`

	LogLevel string `json:"log_level,omitempty"`
	LogFile  string `json:"log_file,omitempty"`
	DataDir  string `json:"data_dir,omitempty"`

	Backup          BackupConfig `json:"backup"`
	MaintenanceCron string       `json:"maintenance_cron,omitempty"`
}

// Defaults returns the configuration used when settings.json is absent or
// leaves a field unset.
func Defaults() *Config {
	return &Config{
		ListenIP:           "0.0.0.0",
		ListenPort:         3000,
		AutosaveIntervalMs: 60000,
		DataDir:            "rooms",
		LogLevel:           "info",
		PreviewSystem:      PreviewSystemConfig{ProcessAllAtStart: false},
	}
}

// Manager owns the loaded configuration and knows how to persist it back.
type Manager struct {
	path   string
	loaded *Config
}

func NewManager() *Manager {
	return &Manager{loaded: Defaults()}
}

// Load reads path, merging any present fields onto the defaults. A missing
// file is not an error; the manager keeps Defaults().
func (m *Manager) Load(path string) error {
	m.path = path
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.loaded = cfg
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	m.loaded = cfg
	return nil
}

func (m *Manager) Get() *Config {
	return m.loaded
}

// Save writes the current configuration back to disk, indented.
func (m *Manager) Save() error {
	if m.path == "" {
		return fmt.Errorf("config: Save called before Load")
	}
	data, err := json.MarshalIndent(m.loaded, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0644)
}
