package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chenyuetian/galyleo/internal/script"
)

var (
	cleanList      bool
	cleanAll       bool
	cleanOlderThan time.Duration
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old batch scripts from the cache",
	Long: `Remove cached batch scripts older than the retention window. The
cache only grows otherwise: every launch leaves its script behind as a
record of the session.

Example:
  galyleo clean --list
  galyleo clean --older-than 24h
  galyleo clean --all`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().BoolVar(&cleanList, "list", false, "List cached scripts without removing anything")
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "Remove every cached script regardless of age")
	cleanCmd.Flags().DurationVar(&cleanOlderThan, "older-than", 7*24*time.Hour, "Retention window for cached scripts")
}

func runClean(cmd *cobra.Command, args []string) error {
	if cleanList {
		infos, err := script.List(cfg.CacheDir)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			uiInstance.Info("script cache is empty")
			return nil
		}

		table := uiInstance.NewTable("Session", "Modified", "Size")
		for _, info := range infos {
			table.AddRow(info.Name,
				info.ModTime.Format("2006-01-02 15:04:05"),
				fmt.Sprintf("%d B", info.Size))
		}
		table.Render()
		return nil
	}

	removed, err := script.Clean(cfg.CacheDir, cleanOlderThan, cleanAll)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		uiInstance.Info("nothing to remove")
		return nil
	}
	for _, name := range removed {
		uiInstance.Subtle("removed " + name)
	}
	uiInstance.Success(fmt.Sprintf("removed %d script(s)", len(removed)))
	return nil
}
