// Package updater tells the user when a newer release of the CLI itself is
// published to the registry. The check result is cached for a day in the CLI
// home so the startup banner never waits on the network.
package updater
