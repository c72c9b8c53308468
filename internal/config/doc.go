// Package config manages user-level settings stored at <cliHome>/config.yaml.
// Values can be overridden with CLI_-prefixed environment variables. Keys
// cover the registry location and timeout, the log level, the node version
// floor and per-command package overrides.
package config
