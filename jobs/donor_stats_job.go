package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type donorRecomputer interface {
	RecomputeAll(ctx context.Context, batchSize int) (int, error)
}

// DonorStatsJob rebuilds donor profiles from donation history so counters
// that missed an update catch up.
type DonorStatsJob struct {
	stats     donorRecomputer
	batchSize int
}

func NewDonorStatsJob(stats donorRecomputer, batchSize int) *DonorStatsJob {
	return &DonorStatsJob{stats: stats, batchSize: batchSize}
}

func (j *DonorStatsJob) Name() string { return "donor-stats-recompute" }

func (j *DonorStatsJob) Run(ctx context.Context) {
	start := time.Now()
	done, err := j.stats.RecomputeAll(ctx, j.batchSize)
	if err != nil {
		log.Error().Err(err).Int("recomputed", done).Msg("donor stats recompute failed")
		return
	}
	log.Info().Int("recomputed", done).Dur("took", time.Since(start)).Msg("donor stats recomputed")
}
