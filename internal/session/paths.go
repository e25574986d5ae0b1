package session

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the base directory, mostly for tests and containers.
const HomeEnv = "MURMUR_HOME"

// BaseDir returns $MURMUR_HOME or ~/.murmur.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".murmur")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// Layout describes the files of one profile's data directory.
type Layout struct {
	Dir string
}

// ForProfile returns the layout of ~/.murmur/profiles/<name>.
func ForProfile(name string) Layout {
	return Layout{Dir: filepath.Join(BaseDir(), "profiles", name)}
}

// DBPath returns the profile's SQLite database path.
func (l Layout) DBPath() string {
	return filepath.Join(l.Dir, "murmur.db")
}

// LogDir returns the log directory.
func (l Layout) LogDir() string {
	return filepath.Join(l.Dir, "logs")
}

// LogPath returns the client log file path.
func (l Layout) LogPath() string {
	return filepath.Join(l.LogDir(), "murmur.log")
}

// LockPath returns the lock file path.
func (l Layout) LockPath() string {
	return filepath.Join(l.Dir, "LOCK")
}

// EnsureDir creates the profile directory tree with owner-only permissions.
func (l Layout) EnsureDir() error {
	for _, d := range []string{l.Dir, l.LogDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
