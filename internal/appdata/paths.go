// Package appdata locates the application's data directory, bootstraps its
// required subdirectories and scaffold files, and holds the process-wide
// state bag (connection pool registry, db cache, line cache, search
// semaphore) that every core operation is threaded through explicitly.
package appdata

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hailam/chessdb/internal/chessdberr"
)

const appName = "chessdb"

// requiredDirs are created under the data directory on first run.
var requiredDirs = []string{"engines", "db", "presets", "puzzles", "documents", "logs"}

// DataDir returns the platform-specific data directory for the application:
// macOS ~/Library/Application Support/chessdb, Windows %APPDATA%/chessdb,
// and everywhere else $XDG_DATA_HOME/chessdb (or ~/.local/share/chessdb).
func DataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w: %w", chessdberr.IO, err)
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home directory: %w: %w", chessdberr.IO, err)
			}
			baseDir = filepath.Join(homeDir, "AppData", "Roaming")
		}

	default:
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home directory: %w: %w", chessdberr.IO, err)
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	return filepath.Join(baseDir, appName), nil
}

// EnsureLayout creates the data directory, every directory in requiredDirs,
// and the engines.json / settings.json scaffold files if they're absent. It
// is safe to call on every startup.
func EnsureLayout() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir %s: %w: %w", dataDir, chessdberr.IO, err)
	}

	for _, d := range requiredDirs {
		dir := filepath.Join(dataDir, d)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w: %w", dir, chessdberr.IO, err)
		}
	}

	if err := ensureFile(filepath.Join(dataDir, "engines", "engines.json"), "[]"); err != nil {
		return "", err
	}
	if err := ensureFile(filepath.Join(dataDir, "settings.json"), "{}"); err != nil {
		return "", err
	}

	return dataDir, nil
}

func ensureFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w: %w", path, chessdberr.IO, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w: %w", path, chessdberr.IO, err)
	}
	return nil
}

// DBDir returns the directory holding imported game databases, creating it
// if necessary.
func DBDir() (string, error) {
	dataDir, err := EnsureLayout()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "db"), nil
}

// PuzzleDir returns the directory holding puzzle catalog databases.
func PuzzleDir() (string, error) {
	dataDir, err := EnsureLayout()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "puzzles"), nil
}
