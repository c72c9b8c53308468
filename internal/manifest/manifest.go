package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the manifest file looked up by Locate.
const FileName = "package.json"

// Package holds the package.json fields the dispatcher reads.
type Package struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description,omitempty"`
	Main        string            `json:"main,omitempty"`
	Module      string            `json:"module,omitempty"`
	Engines     map[string]string `json:"engines,omitempty"`

	// Dir is the directory containing the manifest. Not serialized.
	Dir string `json:"-"`
}

// Entry returns the declared entry field: main, then module.
func (p *Package) Entry() string {
	if strings.TrimSpace(p.Main) != "" {
		return p.Main
	}
	return strings.TrimSpace(p.Module)
}

// Read parses the manifest at path.
func Read(path string) (*Package, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var p Package
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	p.Dir = filepath.Dir(path)
	return &p, nil
}

// FindRoot walks from dir towards the filesystem root and returns the first
// directory containing a package.json, or "" when there is none.
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	for {
		info, err := os.Stat(filepath.Join(abs, FileName))
		if err == nil && !info.IsDir() {
			return abs, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", abs, err)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", nil
		}
		abs = parent
	}
}

// Locate returns the absolute, slash-normalized entry file of the package
// rooted at or above dir. It returns "" with a nil error when no manifest is
// found or the manifest declares neither main nor module.
func Locate(dir string) (string, error) {
	root, err := FindRoot(dir)
	if err != nil || root == "" {
		return "", err
	}
	p, err := Read(filepath.Join(root, FileName))
	if err != nil {
		return "", err
	}
	entry := p.Entry()
	if entry == "" {
		return "", nil
	}
	return FormatPath(filepath.Join(root, entry)), nil
}

// FormatPath replaces every backslash with a forward slash. It is idempotent.
func FormatPath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
