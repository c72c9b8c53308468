package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/oppnys/oppnys/internal/invocation"
)

var (
	initForce   bool
	initVersion string
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Initialize even if the current directory is not empty")
	initCmd.Flags().StringVar(&initVersion, "version", "", "Initial version of the new project (semver)")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [projectName]",
	Short: "Create a new project",
	Long: `Create a new project in the current directory.

The init command is not built in: it is resolved to a package in the registry,
installed into the CLI home on first use and run in a separate process.
Use --targetPath to run a local checkout of the package instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDispatched(cmd, args, "force", "version", "debug")
	},
}

// runDispatched hands cmd to the dispatcher. Only the flags named in allow
// reach the dispatched package.
func runDispatched(cmd *cobra.Command, args []string, allow ...string) error {
	inv, err := invocation.FromCommand(cmd, args, allow...)
	if err != nil {
		return err
	}
	d, err := newDispatcher()
	if err != nil {
		return err
	}

	// The child shares the terminal and receives interrupts itself; the
	// dispatcher keeps running until it exits.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	code, err := d.Dispatch(cmd.Context(), inv)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Command: cmd.Name(), Code: code}
	}
	return nil
}
