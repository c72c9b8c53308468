package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/oppnys/oppnys/internal/branding"
	"github.com/oppnys/oppnys/internal/config"
	"github.com/oppnys/oppnys/internal/logging"
	"github.com/oppnys/oppnys/internal/platform"
	"github.com/oppnys/oppnys/internal/userdata"
	"github.com/oppnys/oppnys/pkg/clierr"
)

// refreshGrace is how long Execute waits for a background update check
// before the process exits.
const refreshGrace = 300 * time.Millisecond

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	flagDebug      bool
	flagTargetPath string

	logger *log.Logger = logging.Default()

	// refreshDone is closed when the background update check finishes. It is
	// nil when no check was started.
	refreshDone chan struct{}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flagTargetPath, "targetPath", "t", "", "Run commands from a local package directory instead of the cache")
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` resolves each subcommand to a package in the npm registry,
caches it under the CLI home and runs it in a separate process.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := prepare(cmd); err != nil {
			return err
		}
		// Commands that only read local state skip the update banner.
		if cmd.Name() != "version" && cmd.Name() != "config" && cmd.Parent() != configCmd {
			startUpdateCheck(cmd)
		}
		return nil
	},
}

// prepare runs the startup checks shared by every command.
func prepare(cmd *cobra.Command) error {
	dropped, err := platform.DropRoot()
	switch {
	case errors.Is(err, platform.ErrRunningAsRoot):
		logger.Warn("running as root; cached packages will be owned by root")
	case err != nil:
		return clierr.Configuration("drop root privileges", err)
	case dropped:
		logger.Debug("dropped root privileges", "uid", os.Getuid())
	}

	if _, err := userdata.GetUserHome(); err != nil {
		return clierr.Configuration("check user home", err)
	}

	envPath, err := userdata.GetDotEnvPath()
	if err != nil {
		return clierr.Configuration("locate .env", err)
	}
	keys, err := userdata.LoadDotEnv(envPath)
	if err != nil {
		return clierr.Configuration("load .env", err)
	}

	home, err := userdata.ExportCLIHome()
	if err != nil {
		return clierr.Configuration("resolve CLI home", err)
	}

	if flagTargetPath != "" {
		abs, err := filepath.Abs(flagTargetPath)
		if err != nil {
			return clierr.Configuration("resolve target path", err)
		}
		if err := os.Setenv(branding.EnvVar("TARGET_PATH"), abs); err != nil {
			return clierr.Configuration("export target path", err)
		}
	}

	config.Load()

	level := config.LogLevel()
	if flagDebug {
		level = logging.LevelDebug
		// Dispatched commands read the same variable.
		if err := os.Setenv(branding.EnvVar("LOG_LEVEL"), level); err != nil {
			return clierr.Configuration("export log level", err)
		}
	}
	l, err := logging.New(cmd.ErrOrStderr(), level)
	if err != nil {
		return clierr.Configuration("set log level", err)
	}
	logger = l

	logger.Debug("startup", "home", home, "env_file", envPath, "env_loaded", len(keys))
	return nil
}

// startUpdateCheck prints a pending update banner and refreshes a stale
// version cache in the background.
func startUpdateCheck(cmd *cobra.Command) {
	client := newRegistryClient()
	u := newUpdater(client)
	refresh := u.CheckAndPrintBanner(cmd.Context(), cmd.ErrOrStderr(), config.Dir())

	done := make(chan struct{})
	refreshDone = done
	go func() {
		defer close(done)
		refresh()
	}()
}

// waitForRefresh gives a running update check up to d to finish.
func waitForRefresh(d time.Duration) {
	if refreshDone == nil {
		return
	}
	select {
	case <-refreshDone:
	case <-time.After(d):
		logger.Debug("update check still running at exit")
	}
}

// Execute runs the root command with build info injected via ldflags. Errors
// are logged once here; a dispatched command's own non-zero exit status is
// not logged again.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	waitForRefresh(refreshGrace)
	if err == nil {
		return nil
	}

	var exit *ExitError
	if errors.As(err, &exit) {
		logger.Debug("command failed", "status", exit.Code)
		return err
	}
	kind := clierr.KindOf(err)
	if kind == 0 {
		// Unclassified errors come from cobra's argument and flag parsing.
		logger.Error(err.Error())
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Run '%s --help' for usage.\n", branding.CLIName())
		return err
	}
	logger.Error(err.Error(), "kind", kind.String())
	return err
}
