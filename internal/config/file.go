package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const appName = "lockblank"

// EnvConfigFile names the variable that overrides the config file location
const EnvConfigFile = "LOCKBLANK_CONFIG"

// Dir returns the per-user configuration directory
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// FilePath returns the config file location, honouring LOCKBLANK_CONFIG
func FilePath() string {
	if path := os.Getenv(EnvConfigFile); path != "" {
		return path
	}
	return filepath.Join(Dir(), "config.toml")
}

// LoadFile overlays the TOML file at path onto cfg. A missing file is not
// an error.
func LoadFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.Errorf("unknown keys in %s: %v", path, undecoded)
	}

	return nil
}

// Save writes cfg to path as TOML
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "create config directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create config file")
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
