package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hkogrunt/grunt/models"
)

const (
	RootDirName       = "HKO_METAVERSE"
	LogsDirName       = "LOGS"
	LibraryDirName    = "METAVERSE_LIBRARY"
	CodeRepoDirName   = "Code_Repository"
	OrganizedDirName  = "ORGANIZED"
	QuarantineDirName = "QUARANTINE"
	ConfigFileName    = "grunt_config.json"
)

// Layout is the folder structure maintained under the application root.
type Layout struct {
	Root           string
	Logs           string
	Library        string
	CodeRepository string
	Organized      string
	Quarantine     string
	ConfigFile     string
	CacheDir       string
	LockDir        string
}

// NewLayout derives every path from root.
func NewLayout(root string) Layout {
	root = filepath.Clean(root)
	library := filepath.Join(root, LibraryDirName)
	return Layout{
		Root:           root,
		Logs:           filepath.Join(root, LogsDirName),
		Library:        library,
		CodeRepository: filepath.Join(library, CodeRepoDirName),
		Organized:      filepath.Join(root, OrganizedDirName),
		Quarantine:     filepath.Join(root, QuarantineDirName),
		ConfigFile:     filepath.Join(library, ConfigFileName),
		CacheDir:       filepath.Join(library, ".cache"),
		LockDir:        filepath.Join(library, ".locks"),
	}
}

// DefaultRoot is ~/Desktop/HKO_METAVERSE.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, "Desktop", RootDirName), nil
}

// Ensure creates every directory of the layout, including one folder per category.
func (l Layout) Ensure() error {
	dirs := []string{l.Root, l.Logs, l.Library, l.CodeRepository, l.Organized, l.Quarantine, l.CacheDir, l.LockDir}
	for _, c := range models.AllCategories {
		dirs = append(dirs, filepath.Join(l.Organized, string(c)))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	return nil
}

const (
	ScanModeDesktop   = "desktop"
	ScanModeDownloads = "downloads"
	ScanModeBoth      = "both"
)

// ScanRoots resolves the folders scanned when no path is given.
func ScanRoots(mode, home string) []string {
	desktop := filepath.Join(home, "Desktop")
	downloads := filepath.Join(home, "Downloads")
	switch mode {
	case ScanModeDesktop:
		return []string{desktop}
	case ScanModeDownloads:
		return []string{downloads}
	default:
		return []string{desktop, downloads}
	}
}
