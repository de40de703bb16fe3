package cmd

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect galyleo configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective site configuration",
	Long: `Print the configuration after merging defaults, the config file, and
GALYLEO_* environment variables.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	uiInstance.Header("galyleo configuration")
	uiInstance.KeyValue("proxy domain", cfg.ProxyDomain)
	uiInstance.KeyValue("dns domain", cfg.DNSDomain)
	uiInstance.KeyValue("default partition", cfg.Partition)
	uiInstance.KeyValue("default interface", cfg.Interface)
	uiInstance.KeyValue("script cache", cfg.CacheDir)
	return nil
}
