package userdata

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/oppnys/oppnys/internal/branding"
)

// EnvEntry represents a single key-value pair from a .env file.
type EnvEntry struct {
	Key   string
	Value string
}

// ParseEnvFile reads a .env file and returns key-value entries.
// It skips blank lines and lines starting with #. Values may be wrapped in
// single or double quotes, which are removed.
func ParseEnvFile(path string) ([]EnvEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening env file %s: %w", path, err)
	}
	defer f.Close()

	var entries []EnvEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		entries = append(entries, EnvEntry{
			Key:   strings.TrimSpace(key),
			Value: unquote(strings.TrimSpace(value)),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return entries, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// LoadDotEnv loads the entries of the .env file at path into the process
// environment. Variables that are already set win. A missing file is not an
// error. It returns the keys that were set.
func LoadDotEnv(path string) ([]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	entries, err := ParseEnvFile(path)
	if err != nil {
		return nil, err
	}
	var set []string
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		if _, ok := os.LookupEnv(e.Key); ok {
			continue
		}
		if err := os.Setenv(e.Key, e.Value); err != nil {
			return set, fmt.Errorf("setting %s from %s: %w", e.Key, path, err)
		}
		set = append(set, e.Key)
	}
	return set, nil
}

// ExportCLIHome resolves the CLI home and writes it back to CLI_HOME so that
// dispatched subprocesses see the same absolute location.
func ExportCLIHome() (string, error) {
	home, err := GetCLIHome()
	if err != nil {
		return "", err
	}
	if err := os.Setenv(branding.EnvVar("HOME"), home); err != nil {
		return "", fmt.Errorf("exporting %s: %w", branding.EnvVar("HOME"), err)
	}
	return home, nil
}

// sensitivePatterns are substrings that indicate a value should be redacted.
var sensitivePatterns = []string{"TOKEN", "SECRET", "PASSWORD", "KEY", "CREDENTIAL", "AUTH"}

// RedactValue returns a redacted version of value if the key name contains
// a sensitive pattern (case-insensitive substring match).
// Values with 4+ chars show the first 4 chars + "***".
// Values with fewer than 4 chars are fully redacted as "***".
func RedactValue(key, value string) string {
	upper := strings.ToUpper(key)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(upper, pattern) {
			if len(value) >= 4 {
				return value[:4] + "***"
			}
			return "***"
		}
	}
	return value
}
