package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/oshokin/code-airgap/internal/config"
	"github.com/oshokin/code-airgap/internal/logger"
	"github.com/oshokin/code-airgap/internal/service/syncer"
	"github.com/oshokin/code-airgap/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// cacheRoot overrides the cache directory.
	cacheRoot string
	// workers overrides the download pool width.
	workers int
	// limit keeps only the newest N matched versions.
	limit int
	// logLevel of the global logger.
	logLevel string

	// rootCmd represents the base command for mirroring releases.
	rootCmd = &cobra.Command{
		Use:   "airgap-sync",
		Short: "Mirror VS Code Server releases into a local cache.",
		Long: heredoc.Doc(`
			Downloads every VS Code Server release that has both a server and a CLI
			archive published, into <cache-root>/<version>/.

			Both catalog feeds are fetched first; only versions listed in both are
			mirrored, newest first. Archives already in the cache are skipped, so the
			command can be re-run at any time to pick up new releases or retry failed
			downloads. A failed download never leaves a partial archive behind.
		`),
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &syncer.Options{
				ConfigPath: configPath,
				CacheRoot:  cacheRoot,
				Workers:    workers,
				Limit:      limit,
			}

			return syncer.Run(ctx, options)
		},
	}

	// configCmd writes the effective configuration.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Write the effective configuration to the config file.",
		Long: heredoc.Doc(`
			Loads the configuration (defaults, config file, AIRGAP_* environment and
			.env overrides), validates it and writes it back to --config, or to
			code-airgap.yaml when no path is given.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if cacheRoot != "" {
				cfg.CacheRoot = cacheRoot
			}

			if workers > 0 {
				cfg.Workers = workers
			}

			if err = config.Save(configPath, cfg); err != nil {
				return err
			}

			target := configPath
			if target == "" {
				target = config.DefaultConfigFilename
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Configuration written to", target)

			return nil
		},
	}
)

// Execute runs the airgap-sync CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(configCmd)

	err := rootCmd.Execute()

	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}

	logger.SetLevel(level)

	return config.LoadEnvFile(config.DefaultEnvFilename)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to configuration file (default "+config.DefaultConfigFilename+" when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&cacheRoot, "cache-root", "", "cache directory, overrides cache_root")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "number of parallel downloads, overrides workers")
	rootCmd.Flags().IntVarP(&limit, "limit", "n", 0, "mirror only the newest N matched versions")
}
