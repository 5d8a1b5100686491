package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Job is a periodic background task.
type Job interface {
	Name() string
	Run(ctx context.Context)
}

// Schedule registers job on s to run every interval, starting right away.
// A run that is still going when the next one is due is skipped.
func Schedule(ctx context.Context, s gocron.Scheduler, interval time.Duration, job Job) error {
	if interval <= 0 {
		log.Info().Str("job", job.Name()).Msg("job disabled")
		return nil
	}

	_, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { job.Run(ctx) }),
		gocron.WithName(job.Name()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return errors.Wrapf(err, "schedule %s", job.Name())
	}

	log.Info().Str("job", job.Name()).Dur("interval", interval).Msg("job scheduled")
	return nil
}
