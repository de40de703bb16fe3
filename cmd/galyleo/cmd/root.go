// Package cmd implements the galyleo command-line interface.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chenyuetian/galyleo/internal/config"
	"github.com/chenyuetian/galyleo/internal/errdefs"
	"github.com/chenyuetian/galyleo/internal/ui"
)

var (
	cfgFile string
	verbose bool
	quiet   bool

	cfg        config.Config
	uiInstance *ui.UI
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "galyleo",
	Short: "Launch Jupyter sessions on the cluster",
	Long: `galyleo starts a Jupyter server as a batch job on the cluster and
exposes it through the site reverse proxy. You get back a single HTTPS
URL; the scheduler, the compute node, and the proxy token lifecycle are
handled for you.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		uiInstance = ui.New(quiet)

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(cfgFile)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.galyleo/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress status output; errors and the session URL still print")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError renders coded errors with their context and suggestion;
// anything else prints as-is.
func reportError(err error) {
	if uiInstance == nil {
		fmt.Fprintln(os.Stderr, "galyleo:", err)
		return
	}

	var coded *errdefs.Error
	if !errors.As(err, &coded) {
		uiInstance.Error(err.Error())
		return
	}

	uiInstance.Error(fmt.Sprintf("[%s] %s", coded.Code, coded.Message))
	for key, value := range coded.Context {
		uiInstance.Subtle(fmt.Sprintf("  %s: %v", key, value))
	}
	if coded.Cause != nil {
		uiInstance.Subtle(fmt.Sprintf("  cause: %v", coded.Cause))
	}
	if coded.Suggestion != "" {
		uiInstance.Info(coded.Suggestion)
	}
}
