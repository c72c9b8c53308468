package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oppnys/oppnys/internal/branding"
	"github.com/oppnys/oppnys/internal/userdata"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Configuration keys.
const (
	KeyRegistry        = "registry"
	KeyRegistryOrigin  = "registry_origin"
	KeyRegistryTimeout = "registry_timeout"
	KeyLogLevel        = "log_level"
	KeyMinNodeVersion  = "min_node_version"
	KeyPackages        = "packages"
)

// Defaults.
const (
	DefaultRegistryTimeout = 5 * time.Second
	DefaultMinNodeVersion  = "12.0.0"
)

// Dir returns the path to the CLI home, which also holds config.yaml.
func Dir() string {
	dir, err := userdata.GetCLIHome()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return dir
}

// FilePath returns the full path to the config file.
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, userdata.DirPermNormal); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(KeyRegistryOrigin, false)
	viper.SetDefault(KeyRegistryTimeout, DefaultRegistryTimeout)
	viper.SetDefault(KeyMinNodeVersion, DefaultMinNodeVersion)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Registry returns the configured registry base URL, or "" to use the
// built-in default.
func Registry() string {
	return viper.GetString(KeyRegistry)
}

// RegistryOrigin reports whether the origin registry should be preferred over
// the public mirror.
func RegistryOrigin() bool {
	return viper.GetBool(KeyRegistryOrigin)
}

// RegistryTimeout returns the bounded timeout for registry HTTP calls.
func RegistryTimeout() time.Duration {
	d := viper.GetDuration(KeyRegistryTimeout)
	if d <= 0 {
		return DefaultRegistryTimeout
	}
	return d
}

// LogLevel returns the configured log level name.
func LogLevel() string {
	return viper.GetString(KeyLogLevel)
}

// MinNodeVersion returns the lowest node version dispatched JavaScript
// commands may run on.
func MinNodeVersion() string {
	if v := viper.GetString(KeyMinNodeVersion); v != "" {
		return v
	}
	return DefaultMinNodeVersion
}

// PackageFor returns the configured package override for a command, or "".
func PackageFor(command string) string {
	return viper.GetString(KeyPackages + "." + command)
}

// Packages returns every configured command → package override.
func Packages() map[string]string {
	return viper.GetStringMapString(KeyPackages)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
