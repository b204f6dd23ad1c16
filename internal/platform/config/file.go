package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the YAML form of the configuration used by consolectl. Every field
// is optional; unset fields keep the value underneath.
type File struct {
	Addr     string `yaml:"addr,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`

	Identity struct {
		URL        string `yaml:"url,omitempty"`
		APIKey     string `yaml:"api_key,omitempty"`
		StorageKey string `yaml:"storage_key,omitempty"`
	} `yaml:"identity,omitempty"`

	Profiles struct {
		Backend string `yaml:"backend,omitempty"`
	} `yaml:"profiles,omitempty"`

	Database struct {
		URL string `yaml:"url,omitempty"`
	} `yaml:"database,omitempty"`

	Redis struct {
		URL string `yaml:"url,omitempty"`
	} `yaml:"redis,omitempty"`

	Session struct {
		Store string `yaml:"store,omitempty"`
		Dir   string `yaml:"dir,omitempty"`
	} `yaml:"session,omitempty"`

	Auth struct {
		PrivilegedIDs      []string `yaml:"privileged_ids,omitempty"`
		GrantAdminOnSignIn *bool    `yaml:"grant_admin_on_sign_in,omitempty"`
		AdminRetryDelay    string   `yaml:"admin_retry_delay,omitempty"`
	} `yaml:"auth,omitempty"`
}

// DefaultFilePath returns the per-user config location, e.g.
// ~/.config/adminconsole/config.yaml on Linux.
func DefaultFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".adminconsole", "config.yaml")
	}
	return filepath.Join(dir, "adminconsole", "config.yaml")
}

// LoadFile reads and parses a YAML config file. Environment variables in the
// file are expanded before parsing.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &f, nil
}

// Apply overlays the fields set in f onto c.
func (f *File) Apply(c *Server) error {
	set := func(src string, dst *string) {
		if src != "" {
			*dst = src
		}
	}
	set(f.Addr, &c.Addr)
	set(f.LogLevel, &c.LogLevel)
	set(f.Identity.URL, &c.Identity.URL)
	set(f.Identity.APIKey, &c.Identity.APIKey)
	set(f.Identity.StorageKey, &c.Identity.StorageKey)
	set(f.Profiles.Backend, &c.Profiles.Backend)
	set(f.Database.URL, &c.Database.URL)
	set(f.Redis.URL, &c.Redis.URL)
	set(f.Session.Store, &c.Session.Store)
	set(f.Session.Dir, &c.Session.Dir)

	if len(f.Auth.PrivilegedIDs) > 0 {
		c.Auth.PrivilegedIDs = nil
		for _, id := range f.Auth.PrivilegedIDs {
			if id != "" && !c.Auth.PrivilegedIDs.Contains(id) {
				c.Auth.PrivilegedIDs = append(c.Auth.PrivilegedIDs, id)
			}
		}
	}
	if f.Auth.GrantAdminOnSignIn != nil {
		c.Auth.GrantAdminOnSignIn = *f.Auth.GrantAdminOnSignIn
	}
	if f.Auth.AdminRetryDelay != "" {
		d, err := time.ParseDuration(f.Auth.AdminRetryDelay)
		if err != nil {
			return fmt.Errorf("auth.admin_retry_delay: %w", err)
		}
		c.Auth.AdminRetryDelay = d
	}
	return nil
}

// Load layers defaults, the YAML file at path, then environment variables.
// A missing file is not an error when path is the default location.
func Load(path string, defaults Server) (Server, error) {
	cfg := defaults
	explicit := path != ""
	if !explicit {
		path = DefaultFilePath()
	}

	f, err := LoadFile(path)
	switch {
	case err == nil:
		if err := f.Apply(&cfg); err != nil {
			return cfg, fmt.Errorf("apply %s: %w", path, err)
		}
	case !explicit && errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, err
	}

	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

// Save writes f as YAML to path, creating the parent directory.
func (f *File) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
