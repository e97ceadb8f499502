package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains the application file paths.
// This is the single source of truth for file locations: everything is
// resolved relative to the executable directory, never the working
// directory, so the application behaves the same however it is launched.
type Paths struct {
	ExecutableDir string
	DataDir       string
	LogsDir       string

	// EntitlementFile holds the persisted license record.
	EntitlementFile string
	// KeysFile holds the distributed list of valid license keys. It is
	// read-only from this application's perspective.
	KeysFile string
}

// GetPaths returns the application paths relative to the executable location.
//
// Directory layout:
//
//	<exe dir>/
//	  ├── data/
//	  │   ├── entitlement.json
//	  │   └── license_keys.json
//	  └── logs/
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}
	exeDir := filepath.Dir(exe)

	dataDir := filepath.Join(exeDir, "data")

	return &Paths{
		ExecutableDir:   exeDir,
		DataDir:         dataDir,
		LogsDir:         filepath.Join(exeDir, "logs"),
		EntitlementFile: filepath.Join(dataDir, "entitlement.json"),
		KeysFile:        filepath.Join(dataDir, "license_keys.json"),
	}, nil
}

// EnsureDirectories creates the required directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether the given path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
