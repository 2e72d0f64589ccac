package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "fgtctl"
	defaultConfigFile    = "config.ini"
)

// DefaultConfigPath returns the path probed when no --config flag is given.
// The file is optional; callers only load it when it exists.
func DefaultConfigPath() string {
	if env := os.Getenv("FGTCTL_CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fgtctl", defaultConfigFile)
}
