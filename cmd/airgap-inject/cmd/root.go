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
	"github.com/oshokin/code-airgap/internal/service/injector"
	"github.com/oshokin/code-airgap/internal/version"
)

var (
	// options collected from flags.
	options injector.Options
	// logLevel of the global logger.
	logLevel string

	// rootCmd represents the base command for deploying a cached release.
	rootCmd = &cobra.Command{
		Use:   "airgap-inject",
		Short: "Install a cached VS Code Server release on a remote host.",
		Long: heredoc.Doc(`
			Copies the server and CLI archives of one cached release to a remote host
			over SSH and installs them where the VS Code client expects them.

			The version is taken from --version, otherwise from the locally installed
			code or code-insiders binary, otherwise it is asked for. Both archives must
			have been mirrored by airgap-sync. The installation is only marked ready
			once the bundled node runtime starts on the target; hosts with an older
			glibc or libstdc++ are reported as an environment mismatch.

			Re-running the command for the same version is safe.
		`),
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return injector.Run(ctx, &options)
		},
	}
)

// Execute runs the airgap-inject CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

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
	flags := rootCmd.Flags()
	flags.StringVarP(&options.ConfigPath, "config", "c", "",
		"path to configuration file (default "+config.DefaultConfigFilename+" when present)")
	flags.StringVarP(&options.Version, "version", "v", "", "commit identifier to install, skips detection")
	flags.StringVarP(&options.User, "user", "u", "", "remote user")
	flags.StringVarP(&options.Host, "host", "H", "", "remote host")
	flags.IntVarP(&options.Port, "port", "p", 0, "remote SSH port")
	flags.StringVarP(&options.Identity, "identity", "i", "", "private key file")
	flags.BoolVar(&options.Local, "local", false, "install on this machine instead of a remote host")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}
