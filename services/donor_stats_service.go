package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"reliefhub-api/models"
)

type donorProfileStore interface {
	Get(ctx context.Context, userID string) (*models.DonorProfile, error)
	Increment(ctx context.Context, userID string, quantity, districts int, at time.Time) (*models.DonorProfile, error)
	Replace(ctx context.Context, userID string, totals models.DonorTotals) (*models.DonorProfile, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

type donorHistory interface {
	CountDistinctDistricts(ctx context.Context, donorID string) (int, error)
	DonorTotals(ctx context.Context, donorID string) (*models.DonorTotals, error)
	DonorIDs(ctx context.Context, after string, limit int) ([]string, error)
}

// DonorStatsService keeps donor profiles in line with donation history.
type DonorStatsService struct {
	profiles donorProfileStore
	history  donorHistory
	now      func() time.Time
}

func NewDonorStatsService(profiles donorProfileStore, history donorHistory) *DonorStatsService {
	return &DonorStatsService{profiles: profiles, history: history, now: time.Now}
}

// RecordDonation bumps a donor's counters after a donation. Districts are
// recounted from history rather than incremented.
func (s *DonorStatsService) RecordDonation(ctx context.Context, donorID string, quantity int) error {
	districts, err := s.history.CountDistinctDistricts(ctx, donorID)
	if err != nil {
		return err
	}
	_, err = s.profiles.Increment(ctx, donorID, quantity, districts, s.now().UTC())
	return err
}

// Recompute rebuilds one donor's profile from their donations.
func (s *DonorStatsService) Recompute(ctx context.Context, donorID string) (*models.DonorProfile, error) {
	totals, err := s.history.DonorTotals(ctx, donorID)
	if err != nil {
		return nil, err
	}
	return s.profiles.Replace(ctx, donorID, *totals)
}

// RecomputeAll rebuilds every donor profile, batchSize donors at a time, and
// returns how many were rebuilt. A failing donor is logged and skipped.
func (s *DonorStatsService) RecomputeAll(ctx context.Context, batchSize int) (int, error) {
	if batchSize < 1 {
		batchSize = 200
	}

	done := 0
	after := ""
	for {
		ids, err := s.history.DonorIDs(ctx, after, batchSize)
		if err != nil {
			return done, err
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return done, err
			}
			if _, err := s.Recompute(ctx, id); err != nil {
				log.Error().Err(err).Str("donor_id", id).Msg("failed to recompute donor profile")
				continue
			}
			done++
		}
		if len(ids) < batchSize {
			return done, nil
		}
		after = ids[len(ids)-1]
	}
}

// Profile returns a donor's profile. Donors without donations get zeroes.
func (s *DonorStatsService) Profile(ctx context.Context, userID string) (*models.DonorProfile, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return &models.DonorProfile{UserID: userID, Badges: models.BadgeList{}}, nil
	}
	return profile, err
}

// Leaderboard returns the top donors by items donated.
func (s *DonorStatsService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return s.profiles.Leaderboard(ctx, limit)
}
