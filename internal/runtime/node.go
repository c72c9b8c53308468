package runtime

import (
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/oppnys/oppnys/internal/invocation"
)

// DefaultMinNodeVersion is the lowest Node.js release commands may run on.
const DefaultMinNodeVersion = "12.0.0"

//go:embed loader.cjs
var loaderScript []byte

// NodeRuntime executes JavaScript command packages through a fixed loader
// script.
type NodeRuntime struct {
	// LoaderDir is where the loader script is written. Required.
	LoaderDir string
	// MinVersion is the Node.js floor; DefaultMinNodeVersion when empty.
	MinVersion string
	// LookPath finds the node binary; exec.LookPath when nil.
	LookPath func(file string) (string, error)
}

func (n *NodeRuntime) Name() string { return RuntimeNode }

// Prepare verifies Node.js is available and new enough, writes the loader if
// needed and returns `node <loader> <entry> <envVar>`.
func (n *NodeRuntime) Prepare(ctx context.Context, entry string) ([]string, error) {
	if _, err := os.Stat(entry); err != nil {
		return nil, fmt.Errorf("command entry point not found at %s: %w", entry, err)
	}
	nodeBin, err := n.nodeBinary()
	if err != nil {
		return nil, err
	}
	if err := n.CheckVersion(ctx, nodeBin); err != nil {
		return nil, err
	}
	loader, err := n.EnsureLoader()
	if err != nil {
		return nil, err
	}
	return []string{nodeBin, loader, entry, invocation.EnvVar()}, nil
}

func (n *NodeRuntime) nodeBinary() (string, error) {
	lookPath := n.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	nodeBin, err := lookPath("node")
	if err != nil {
		return "", fmt.Errorf("node runtime requires Node.js: %w", err)
	}
	return nodeBin, nil
}

// Version returns the installed Node.js version without the leading "v".
func (n *NodeRuntime) Version(ctx context.Context) (string, error) {
	nodeBin, err := n.nodeBinary()
	if err != nil {
		return "", err
	}
	return nodeVersion(ctx, nodeBin)
}

// CheckVersion fails when the node binary is older than the floor.
func (n *NodeRuntime) CheckVersion(ctx context.Context, nodeBin string) error {
	raw, err := nodeVersion(ctx, nodeBin)
	if err != nil {
		return err
	}
	return checkFloor(raw, n.minVersion())
}

// SatisfiesFloor checks a Node.js version string against the floor.
func (n *NodeRuntime) SatisfiesFloor(version string) error {
	return checkFloor(version, n.minVersion())
}

func (n *NodeRuntime) minVersion() string {
	if strings.TrimSpace(n.MinVersion) == "" {
		return DefaultMinNodeVersion
	}
	return n.MinVersion
}

func nodeVersion(ctx context.Context, nodeBin string) (string, error) {
	out, err := exec.CommandContext(ctx, nodeBin, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("running %s --version: %w", nodeBin, err)
	}
	return strings.TrimPrefix(strings.TrimSpace(string(out)), "v"), nil
}

func checkFloor(current, floor string) error {
	want, err := semver.NewVersion(floor)
	if err != nil {
		return fmt.Errorf("invalid minimum Node.js version %q: %w", floor, err)
	}
	v, err := semver.NewVersion(current)
	if err != nil {
		return fmt.Errorf("unrecognized Node.js version %q: %w", current, err)
	}
	if v.LessThan(want) {
		return fmt.Errorf("requires Node.js %s or newer, found %s", want, v)
	}
	return nil
}

// EnsureLoader writes the embedded loader into LoaderDir unless an identical
// copy is already there, and returns its path. The file name carries a
// content hash so loaders from different CLI builds never clash.
func (n *NodeRuntime) EnsureLoader() (string, error) {
	if n.LoaderDir == "" {
		return "", fmt.Errorf("node runtime has no loader directory")
	}
	sum := sha256.Sum256(loaderScript)
	path := filepath.Join(n.LoaderDir, "loader-"+hex.EncodeToString(sum[:4])+".cjs")

	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, loaderScript) {
		return path, nil
	}
	if err := os.MkdirAll(n.LoaderDir, 0o755); err != nil {
		return "", fmt.Errorf("creating loader directory: %w", err)
	}
	tmp, err := os.CreateTemp(n.LoaderDir, ".loader-*")
	if err != nil {
		return "", fmt.Errorf("writing loader: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(loaderScript); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing loader: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing loader: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("installing loader: %w", err)
	}
	return path, nil
}
