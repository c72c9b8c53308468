package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
)

// Runtime turns an entry point into the command line that runs it.
type Runtime interface {
	// Name identifies the runtime in logs.
	Name() string
	// Prepare returns the program and arguments that execute entry.
	Prepare(ctx context.Context, entry string) ([]string, error)
}

// Supported runtime identifiers.
const (
	RuntimeNode   = "node"
	RuntimeNative = "native"
)

// RuntimeFor returns the runtime identifier for an entry path: JavaScript
// sources run under Node.js, everything else is executed directly.
func RuntimeFor(entry string) string {
	switch strings.ToLower(filepath.Ext(entry)) {
	case ".js", ".cjs", ".mjs":
		return RuntimeNode
	default:
		return RuntimeNative
	}
}

var scriptExts = []string{".js", ".cjs", ".mjs"}

// ResolveEntry maps a manifest entry to the file that runs, the way Node.js
// resolves a package main. An executable regular file is kept as is. Then
// entry plus each script extension is tried, then the index script of a
// directory. Entries that match nothing are returned unchanged.
func ResolveEntry(entry string) string {
	info, err := os.Stat(entry)
	if err == nil && info.Mode().IsRegular() && executable(info) {
		return entry
	}
	if filepath.Ext(entry) == "" {
		for _, ext := range scriptExts {
			if isFile(entry + ext) {
				return entry + ext
			}
		}
	}
	if err == nil && info.IsDir() {
		for _, ext := range scriptExts {
			if index := filepath.Join(entry, "index"+ext); isFile(index) {
				return index
			}
		}
	}
	return entry
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func executable(info os.FileInfo) bool {
	return goruntime.GOOS == "windows" || info.Mode().Perm()&0o111 != 0
}

// DispatchRuntime returns the runtime registered for id. Returns an
// error-producing runtime for unknown values.
func DispatchRuntime(id string, node *NodeRuntime, native *NativeRuntime) Runtime {
	switch id {
	case RuntimeNode:
		return node
	case RuntimeNative:
		return native
	default:
		return &unknownRuntime{name: id}
	}
}

// unknownRuntime is returned when the runtime identifier is not recognized.
type unknownRuntime struct {
	name string
}

func (u *unknownRuntime) Name() string { return u.name }

func (u *unknownRuntime) Prepare(context.Context, string) ([]string, error) {
	return nil, fmt.Errorf("unknown runtime %q: supported runtimes are %q and %q", u.name, RuntimeNode, RuntimeNative)
}
