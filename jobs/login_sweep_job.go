package jobs

import (
	"context"

	"github.com/rs/zerolog/log"
)

type attemptSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// LoginSweepJob drops expired login attempts and lockouts.
type LoginSweepJob struct {
	tracker attemptSweeper
}

func NewLoginSweepJob(tracker attemptSweeper) *LoginSweepJob {
	return &LoginSweepJob{tracker: tracker}
}

func (j *LoginSweepJob) Name() string { return "login-attempt-sweep" }

func (j *LoginSweepJob) Run(ctx context.Context) {
	removed, err := j.tracker.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("login attempt sweep failed")
		return
	}
	log.Debug().Int("removed", removed).Msg("login attempt sweep completed")
}
