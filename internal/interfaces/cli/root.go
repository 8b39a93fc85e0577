package cli

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"
	"strand.sh/cli/internal/application/services"
	"strand.sh/cli/internal/core/domain"
	"strand.sh/cli/internal/core/ports"
	"strand.sh/cli/internal/infrastructure/config"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// CLIContainer holds the dependencies CLI commands need.
type CLIContainer struct {
	ConfigRepo ports.ConfigRepository
	Fetcher    ports.Fetcher
	Extractor  ports.Extractor
	Dirs       ports.DirectoryManager
	Logger     *log.Logger
}

// installFlags holds the flags shared by the root command and the add
// subcommands, which all end in a full reinstall.
type installFlags struct {
	PluginDir   string
	Concurrency int
	Timeout     time.Duration
	Plain       bool
}

// NewRootCommand builds the base command. Without a subcommand strand wipes
// the plugin directory and reinstalls every declared plugin.
func NewRootCommand(container *CLIContainer) *cobra.Command {
	var configLocation bool

	rootCmd := &cobra.Command{
		Use:   "strand",
		Short: "Strand - a fast, concurrent Vim plugin installer",
		Long: `Strand installs the plugins declared in its config file by downloading a
compressed archive for each one in parallel and unpacking it into the plugin
directory. Every run wipes the directory and reinstalls everything, so there
is no stale state to reconcile: a failed plugin simply gets retried from
scratch on the next run.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Swap in an alternate config file before any command runs.
			if path, _ := cmd.Flags().GetString("config"); path != "" && cmd.Flags().Changed("config") {
				container.ConfigRepo = config.NewFileRepository(path)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if configLocation {
				fmt.Fprintln(cmd.OutOrStdout(), container.ConfigRepo.Location())
				return nil
			}
			return runInstall(cmd, container)
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	rootCmd.Flags().BoolVar(&configLocation, "config-location", false, "Print the config file location and exit")

	rootCmd.PersistentFlags().String("config", "", "Config file path (default is the user config dir + strand/config.yaml)")
	rootCmd.PersistentFlags().String("plugin-dir", "", "Override the plugin directory from the config file")
	rootCmd.PersistentFlags().Int("concurrency", services.DefaultMaxInFlight, "Maximum number of plugins downloaded at once")
	rootCmd.PersistentFlags().Duration("timeout", services.DefaultPluginTimeout, "Per-plugin timeout covering download and extraction")
	rootCmd.PersistentFlags().Bool("plain", false, "Disable the spinner while installing")

	rootCmd.AddCommand(NewAddCommand(container))

	return rootCmd
}

// runInstall is the shared install flow: load config, resolve every
// declaration up front, fan out the installs, and render the report.
func runInstall(cmd *cobra.Command, container *CLIContainer) error {
	flags, err := parseInstallFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := container.ConfigRepo.Load()
	if err != nil {
		return err
	}
	if flags.PluginDir != "" {
		cfg.PluginDir = config.ExpandPath(flags.PluginDir)
	}

	sources, err := domain.ResolveAll(cfg.Plugins)
	if err != nil {
		return err
	}

	installer := services.NewInstallService(
		container.Fetcher,
		container.Extractor,
		container.Dirs,
		container.Logger,
		services.InstallOptions{
			MaxInFlight:   flags.Concurrency,
			PluginTimeout: flags.Timeout,
		},
	)

	run := func() (domain.InstallReport, error) {
		return installer.InstallAll(cmd.Context(), sources, cfg.PluginDir)
	}

	var report domain.InstallReport
	if flags.Plain {
		report, err = run()
	} else {
		report, err = runWithSpinner(run, len(sources))
	}
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), renderReport(report))

	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d plugins failed to install", failed, len(report.Outcomes))
	}
	return nil
}

// parseInstallFlags reads the shared persistent flags off any command.
func parseInstallFlags(cmd *cobra.Command) (*installFlags, error) {
	flags := &installFlags{}
	var err error
	if flags.PluginDir, err = cmd.Flags().GetString("plugin-dir"); err != nil {
		return nil, err
	}
	if flags.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return nil, err
	}
	if flags.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if flags.Plain, err = cmd.Flags().GetBool("plain"); err != nil {
		return nil, err
	}
	return flags, nil
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// Execute runs the root command and maps any error to a non-zero exit.
func Execute(container *CLIContainer) {
	rootCmd := NewRootCommand(container)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
