package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/oppnys/oppnys/internal/branding"
	"github.com/oppnys/oppnys/internal/config"
	"github.com/oppnys/oppnys/internal/manifest"
	"github.com/oppnys/oppnys/internal/pkgcache"
	"github.com/oppnys/oppnys/internal/registry"
	"github.com/oppnys/oppnys/internal/userdata"
)

var (
	checkRuntime  bool
	checkHome     bool
	checkCache    bool
	checkRegistry bool
	checkEnv      bool
	checkManifest string
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func init() {
	doctorCmd.Flags().BoolVar(&checkRuntime, "check-runtime", false, "Verify Node.js is available and recent enough")
	doctorCmd.Flags().BoolVar(&checkHome, "check-home", false, "Verify the CLI home and cache directories")
	doctorCmd.Flags().BoolVar(&checkCache, "check-cache", false, "List cached command packages")
	doctorCmd.Flags().BoolVar(&checkRegistry, "check-registry", false, "Verify the package registry is reachable")
	doctorCmd.Flags().BoolVar(&checkEnv, "check-env", false, "Show CLI environment variables")
	doctorCmd.Flags().StringVar(&checkManifest, "check-manifest", "", "Validate a package.json at the given path")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the CLI installation",
	Long:  `Run diagnostic checks on the CLI home, the package cache and the runtimes dispatched commands need.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		anyFlag := checkRuntime || checkHome || checkCache || checkRegistry || checkEnv || checkManifest != ""
		if !anyFlag {
			runRuntimeCheck(ctx, w)
			runHomeCheck(w)
			runCacheCheck(w)
			runEnvCheck(w, os.Environ())
			return nil
		}

		if checkRuntime {
			runRuntimeCheck(ctx, w)
		}
		if checkHome {
			runHomeCheck(w)
		}
		if checkCache {
			runCacheCheck(w)
		}
		if checkRegistry {
			if err := runRegistryCheck(ctx, w, newRegistryClient()); err != nil {
				return err
			}
		}
		if checkEnv {
			runEnvCheck(w, os.Environ())
		}
		if checkManifest != "" {
			if err := runManifestCheck(w, checkManifest); err != nil {
				return err
			}
		}
		return nil
	},
}

func report(w io.Writer, style lipgloss.Style, tag, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s\n", style.Render("["+tag+"]"), fmt.Sprintf(format, args...))
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w, headingStyle.Render(title))
}

func runRuntimeCheck(ctx context.Context, w io.Writer) {
	heading(w, "Runtime check:")
	node, err := newNodeRuntime()
	if err != nil {
		report(w, failStyle, "FAIL", "%v", err)
		return
	}
	version, err := node.Version(ctx)
	if err != nil {
		report(w, warnStyle, "MISS", "node not found; JavaScript commands cannot run")
		return
	}
	if err := node.SatisfiesFloor(version); err != nil {
		report(w, failStyle, "FAIL", "node %s: %v", version, err)
		return
	}
	report(w, okStyle, " OK ", "node %s (minimum %s)", version, config.MinNodeVersion())
}

func runHomeCheck(w io.Writer) {
	heading(w, "Home check:")
	home, err := userdata.GetCLIHome()
	if err != nil {
		report(w, failStyle, "FAIL", "cannot resolve CLI home: %v", err)
		return
	}
	checkDir(w, "CLI home", home)

	deps, err := userdata.GetDependenciesDir()
	if err != nil {
		report(w, failStyle, "FAIL", "cannot resolve dependencies directory: %v", err)
		return
	}
	checkDir(w, "package cache", deps)

	if _, err := os.Stat(config.FilePath()); err == nil {
		report(w, okStyle, " OK ", "config file %s", config.FilePath())
	} else {
		report(w, okStyle, "INFO", "no config file; using defaults")
	}
}

// checkDir reports whether dir exists and accepts new files.
func checkDir(w io.Writer, label, dir string) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		report(w, warnStyle, "MISS", "%s %s does not exist yet", label, dir)
		return
	}
	if err != nil {
		report(w, failStyle, "FAIL", "%s %s: %v", label, dir, err)
		return
	}
	if !info.IsDir() {
		report(w, failStyle, "FAIL", "%s %s is not a directory", label, dir)
		return
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		report(w, failStyle, "FAIL", "%s %s is not writable: %v", label, dir, err)
		return
	}
	probe.Close()
	os.Remove(probe.Name())
	report(w, okStyle, " OK ", "%s %s", label, dir)
}

func runCacheCheck(w io.Writer) {
	heading(w, "Cache check:")
	store, err := userdata.GetStoreDir()
	if err != nil {
		report(w, failStyle, "FAIL", "cannot resolve store directory: %v", err)
		return
	}
	cached, err := pkgcache.List(store)
	if err != nil {
		report(w, warnStyle, "WARN", "cannot read %s: %v", store, err)
		return
	}
	if len(cached) == 0 {
		report(w, okStyle, "INFO", "no cached packages")
		return
	}
	for _, ref := range cached {
		report(w, okStyle, " OK ", "%s", ref)
	}
}

func runRegistryCheck(ctx context.Context, w io.Writer, client *registry.Client) error {
	heading(w, "Registry check:")
	ctx, cancel := context.WithTimeout(ctx, 2*config.RegistryTimeout())
	defer cancel()

	start := time.Now()
	latest, err := registry.NewResolver(client).Resolve(ctx, branding.PackageName(), registry.Latest)
	if err != nil {
		report(w, failStyle, "FAIL", "%s: %v", client.BaseURL(), err)
		return fmt.Errorf("registry %s is not usable: %w", client.BaseURL(), err)
	}
	report(w, okStyle, " OK ", "%s (%s latest %s, %s)", client.BaseURL(), branding.PackageName(), latest,
		time.Since(start).Round(time.Millisecond))
	return nil
}

func runEnvCheck(w io.Writer, environ []string) {
	heading(w, "Environment:")
	prefix := branding.EnvPrefix() + "_"
	var lines []string
	for _, kv := range environ {
		key, value, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		lines = append(lines, key+"="+userdata.RedactValue(key, value))
	}
	if len(lines) == 0 {
		report(w, okStyle, "INFO", "no %s* variables set", prefix)
		return
	}
	sort.Strings(lines)
	for _, l := range lines {
		report(w, okStyle, " ENV", "%s", l)
	}
}

func runManifestCheck(w io.Writer, path string) error {
	heading(w, "Manifest validation: "+path)

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, manifest.FileName)
	}

	result, err := manifest.ValidateFile(path)
	if err != nil {
		report(w, failStyle, "FAIL", "%v", err)
		return fmt.Errorf("manifest validation failed: %w", err)
	}

	if result.Valid {
		pkg, err := manifest.Read(path)
		if err != nil {
			report(w, okStyle, " OK ", "valid manifest")
			return nil
		}
		if pkg.Entry() == "" {
			report(w, warnStyle, "WARN", "%s@%s declares no main or module entry", pkg.Name, pkg.Version)
			return nil
		}
		report(w, okStyle, " OK ", "%s@%s, entry %s", pkg.Name, pkg.Version, pkg.Entry())
		return nil
	}

	report(w, failStyle, "FAIL", "%d validation issue(s):", len(result.Issues))
	for _, issue := range result.Issues {
		if issue.Path != "" {
			fmt.Fprintf(w, "    - %s: %s\n", issue.Path, issue.Message)
		} else {
			fmt.Fprintf(w, "    - %s\n", issue.Message)
		}
	}
	return fmt.Errorf("manifest %s has %d validation issue(s)", path, len(result.Issues))
}
