package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/minisoc-systems/minisoc/cli/internal/client"
	"github.com/minisoc-systems/minisoc/cli/internal/seeder"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo data",
	Long: `Generate synthetic security events against a running minisoc instance.

Produces benign baseline noise plus brute-force bursts that cross the
failed-login threshold, so alerts appear on the next detection cycle.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL(cmd))

		cfg := seeder.DefaultConfig()
		cfg.BaselineEvents, _ = cmd.Flags().GetInt("baseline")
		cfg.Attackers, _ = cmd.Flags().GetInt("attackers")
		cfg.BurstSize, _ = cmd.Flags().GetInt("burst")
		cfg.Seed, _ = cmd.Flags().GetInt64("seed")

		window, _ := cmd.Flags().GetDuration("window")
		if window > 0 {
			cfg.TimeWindow = window
		}

		return seeder.New(c, cfg).Run()
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	defaults := seeder.DefaultConfig()
	seedCmd.Flags().Int("baseline", defaults.BaselineEvents, "Number of benign background events")
	seedCmd.Flags().Int("attackers", defaults.Attackers, "Number of brute-force sources")
	seedCmd.Flags().Int("burst", defaults.BurstSize, "Failed logins per attacker")
	seedCmd.Flags().Duration("window", 2*time.Hour, "Trailing window to spread events over")
	seedCmd.Flags().Int64("seed", 0, "Random seed (0 = time-based)")
}
