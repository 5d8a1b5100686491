package cmd

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var recomputeStatsCmd = &cobra.Command{
	Use:   "recompute-stats",
	Short: "Rebuild every donor profile from donation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		start := time.Now()
		done, err := a.donorStats.RecomputeAll(ctx, cfg.Jobs.DonorStatsBatchSize)
		if err != nil {
			return err
		}

		log.Info().Int("recomputed", done).Dur("took", time.Since(start)).Msg("donor profiles recomputed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recomputeStatsCmd)
}
