package platform

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// CreateSymlink creates a symbolic link from link pointing to target.
// On Unix systems, this uses os.Symlink directly.
// On Windows, it attempts os.Symlink first (requires developer mode), then
// falls back to recording the target in a .target sidecar next to link.
func CreateSymlink(target, link string) error {
	if runtime.GOOS != "windows" {
		return os.Symlink(target, link)
	}

	// Try native symlink first (works if developer mode is enabled).
	if err := os.Symlink(target, link); err == nil {
		return nil
	}

	sidecar := link + ".target"
	if err := os.WriteFile(sidecar, []byte(target), 0644); err != nil {
		return fmt.Errorf("symlink fallback (sidecar) failed: %w", err)
	}
	return nil
}

// ReplaceSymlink points link at target, removing whatever link pointed at
// before. A regular directory at link is left alone and reported as an error.
func ReplaceSymlink(target, link string) error {
	info, err := os.Lstat(link)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink == 0 && info.IsDir():
		return fmt.Errorf("%s exists and is not a link", link)
	case err == nil:
		if err := RemoveSymlink(link); err != nil {
			return fmt.Errorf("removing old link %s: %w", link, err)
		}
	case os.IsNotExist(err):
		// Also clear a stale sidecar from an earlier fallback.
		os.Remove(link + ".target")
	default:
		return fmt.Errorf("inspecting %s: %w", link, err)
	}
	return CreateSymlink(target, link)
}

// RemoveSymlink removes a symlink (or its fallback sidecar).
func RemoveSymlink(path string) error {
	err := os.Remove(path)

	// Also clean up the sidecar if it exists.
	sidecar := path + ".target"
	os.Remove(sidecar) // best-effort

	return err
}

// ReadSymlinkTarget returns the target of a symlink.
// On Windows, if os.Readlink fails (because the sidecar fallback was used),
// it reads from the .target sidecar file.
func ReadSymlinkTarget(path string) (string, error) {
	target, err := os.Readlink(path)
	if err == nil {
		return target, nil
	}

	if runtime.GOOS != "windows" {
		return "", err
	}

	// Windows fallback: read sidecar .target file.
	sidecar := path + ".target"
	data, readErr := os.ReadFile(sidecar)
	if readErr != nil {
		return "", fmt.Errorf("readlink failed and no .target sidecar found: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// IsSymlinkSupported returns true if the current platform supports native symlinks.
// On Windows this attempts a test symlink to check developer mode.
func IsSymlinkSupported() bool {
	if runtime.GOOS != "windows" {
		return true
	}

	// Try creating a temporary symlink to test support.
	tmpDir := os.TempDir()
	target := tmpDir
	link := tmpDir + "/.oppnys-symlink-test"
	defer os.Remove(link)

	if err := os.Symlink(target, link); err != nil {
		return false
	}
	return true
}
