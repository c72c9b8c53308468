// Package branding provides compile-time identity values for the CLI.
//
// Forkers edit branding.yaml, then rebuild; Go's //go:embed bakes it into
// the binary.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName      string `yaml:"cli_name"`
	DisplayName  string `yaml:"display_name"`
	Description  string `yaml:"description"`
	HomeDir      string `yaml:"home_dir"`
	EnvPrefix    string `yaml:"env_prefix"`
	GoModule     string `yaml:"go_module"`
	PackageName  string `yaml:"package_name"`
	CommandScope string `yaml:"command_scope"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:      "oppnys",
			DisplayName:  "Oppnys",
			Description:  "Scaffolding CLI whose commands are resolved from the npm registry",
			HomeDir:      ".oppnys-cli",
			EnvPrefix:    "CLI",
			GoModule:     "github.com/oppnys/oppnys",
			PackageName:  "@oppnys/cli",
			CommandScope: "@oppnys",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "oppnys").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the default CLI home directory name under $HOME (e.g., ".oppnys-cli").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "CLI").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path. Not consumed at runtime.
func GoModule() string { load(); return defaults.GoModule }

// PackageName returns the registry name the CLI itself is published under.
// The update banner compares the running version against it.
func PackageName() string { load(); return defaults.PackageName }

// CommandScope returns the registry scope of the built-in command packages.
func CommandScope() string { load(); return defaults.CommandScope }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") → "CLI_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
