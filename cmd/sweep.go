package cmd

import (
	"fmt"
	"time"

	"github.com/kayz/scribe/internal/scratch"
	"github.com/spf13/cobra"
)

var sweepMaxAge time.Duration

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove stale files from the scratch directory",
	Long: `Remove files left in the scratch directory by interrupted runs.

Only files older than --max-age (scratch.max_age in the config when not set)
are removed. The running bot does the same on scratch.sweep_schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		maxAge := cfg.Scratch.MaxAge
		if cmd.Flags().Changed("max-age") {
			maxAge = sweepMaxAge
		}

		dir := scratch.New(cfg.Scratch.Dir, cfg.Scratch.MinFreeBytes)
		n, err := dir.Sweep(time.Now(), maxAge)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale file(s) from %s\n", n, dir.Root())
		return nil
	},
}

func init() {
	sweepCmd.Flags().DurationVar(&sweepMaxAge, "max-age", time.Hour, "Remove files older than this")
	rootCmd.AddCommand(sweepCmd)
}
