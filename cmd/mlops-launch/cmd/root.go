package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/mlops-launch/internal/config"
	"github.com/oshokin/mlops-launch/internal/logger"
	"github.com/oshokin/mlops-launch/internal/service/launcher"
	"github.com/oshokin/mlops-launch/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel is the minimum level of written log entries.
	logLevel string
	// ignoreList holds extra patterns left out of the packages.
	ignoreList []string
	// platform overrides the configured target platform.
	platform string
	// fedmlHome is written to the settings by login.
	fedmlHome string

	// rootCmd packages a job description into launch archives.
	rootCmd = &cobra.Command{
		Use:   "mlops-launch [job-yaml]",
		Short: "Package a job description into MLOps launch archives",
		Args:  cobra.ExactArgs(1),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &launcher.Options{
				ConfigPath: configPath,
				JobPath:    args[0],
				IgnoreList: ignoreList,
				Platform:   platform,
				Output:     cmd.OutOrStdout(),
			}

			return launcher.Run(ctx, options)
		},
	}

	// loginCmd stores the API key used by later launches.
	loginCmd = &cobra.Command{
		Use:   "login [api-key]",
		Short: "Store the MLOps API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return launcher.Login(ctx, &launcher.LoginOptions{
				ConfigPath: configPath,
				APIKey:     args[0],
				FedMLHome:  fedmlHome,
			})
		},
	}
)

// Execute runs the mlops-launch CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringSliceVar(&ignoreList, "ignore", nil, "extra patterns left out of the packages")
	rootCmd.Flags().StringVar(&platform, "platform", "", "target platform, overrides the configuration")

	loginCmd.Flags().StringVar(&fedmlHome, "home", "", "fedml home folder saved to the configuration file")

	rootCmd.AddCommand(loginCmd)
}
