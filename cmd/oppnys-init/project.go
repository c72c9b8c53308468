package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/oppnys/oppnys/internal/manifest"
	"github.com/oppnys/oppnys/pkg/lifecycle"
)

const defaultVersion = "1.0.0"

// projectNamePattern accepts a letter followed by letters and digits, with
// single - or _ separators each followed by a letter.
var projectNamePattern = regexp.MustCompile(`^[a-zA-Z]+([-_][a-zA-Z][a-zA-Z0-9]*|[a-zA-Z0-9])*$`)

var errDirNotEmpty = errors.New("current directory is not empty; use --force to initialize anyway")

type project struct {
	lifecycle.Base

	// dir is the directory to initialize; the working directory when empty.
	dir     string
	name    string
	version string
	force   bool
}

func (p *project) Init(l *lifecycle.Lifecycle) error {
	if p.dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		p.dir = wd
	}

	p.name, _ = l.Arg(0)
	if p.name == "" {
		p.name = filepath.Base(p.dir)
	}
	if !projectNamePattern.MatchString(p.name) {
		return fmt.Errorf("invalid project name %q: start with a letter and use only letters, digits, - and _", p.name)
	}

	p.version = defaultVersion
	if v := l.StringOption("version"); v != "" {
		parsed, err := semver.StrictNewVersion(v)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", v, err)
		}
		p.version = parsed.String()
	}

	p.force = l.BoolOption("force")
	return nil
}

func (p *project) Exec(_ context.Context, _ *lifecycle.Lifecycle) error {
	empty, err := isEmptyDir(p.dir)
	if err != nil {
		return err
	}
	if !empty && !p.force {
		return errDirNotEmpty
	}

	// Registry names are lower case.
	pkg := manifest.Package{Name: strings.ToLower(p.name), Version: p.version, Main: "index.js"}
	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", manifest.FileName, err)
	}
	result, err := manifest.Validate(data)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("generated %s is invalid: %s", manifest.FileName, result.Issues[0].Message)
	}

	path := filepath.Join(p.dir, manifest.FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("Initialized %s@%s in %s\n", p.name, p.version, p.dir)
	return nil
}

// isEmptyDir reports whether dir has no entries other than dotfiles.
func isEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.Name()[0] != '.' {
			return false, nil
		}
	}
	return true, nil
}
