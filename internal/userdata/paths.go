package userdata

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oppnys/oppnys/internal/branding"
)

// Directory and file name constants for the CLI home layout.
const (
	DependenciesDir = "dependencies"
	NodeModulesDir  = "node_modules"
	DotEnvFile      = ".env"
)

// Permission constants.
const (
	DirPermNormal  os.FileMode = 0755
	FilePermNormal os.FileMode = 0644
)

// GetUserHome returns the user's home directory and verifies that it exists.
func GetUserHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	info, err := os.Stat(home)
	if err != nil {
		return "", fmt.Errorf("user home directory %s does not exist: %w", home, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("user home %s is not a directory", home)
	}
	return home, nil
}

// GetCLIHome returns the CLI home directory.
// It checks the CLI_HOME environment variable first; relative values are
// joined to the user home. Falls back to ~/.oppnys-cli.
func GetCLIHome() (string, error) {
	v := os.Getenv(branding.EnvVar("HOME"))
	if v != "" && filepath.IsAbs(v) {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	if v != "" {
		return filepath.Join(home, v), nil
	}
	return filepath.Join(home, branding.HomeDir()), nil
}

// GetDependenciesDir returns <cliHome>/dependencies, the cache root that
// cached command packages are installed under.
func GetDependenciesDir() (string, error) {
	root, err := GetCLIHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, DependenciesDir), nil
}

// GetStoreDir returns <cliHome>/dependencies/node_modules, the store
// directory holding one sub-directory per cached package version.
func GetStoreDir() (string, error) {
	deps, err := GetDependenciesDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(deps, NodeModulesDir), nil
}

// GetTargetPath returns the CLI_TARGET_PATH override, or "" when unset.
// A non-empty target path bypasses the package cache entirely.
func GetTargetPath() string {
	return os.Getenv(branding.EnvVar("TARGET_PATH"))
}

// GetDotEnvPath returns the path of the user's ~/.env file.
func GetDotEnvPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, DotEnvFile), nil
}
