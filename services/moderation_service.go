package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reliefhub-api/models"
)

type flagStore interface {
	Report(ctx context.Context, flag *models.PostFlag, threshold int) (*models.FlagOutcome, error)
	GetByID(ctx context.Context, id string) (*models.PostFlag, error)
	List(ctx context.Context, status models.FlagStatus, page, limit int) ([]models.PostFlag, int64, error)
	CountPending(ctx context.Context) (int64, error)
	Review(ctx context.Context, id string, status models.FlagStatus, reviewerID string) (*models.PostFlag, *models.NeedPost, error)
	ResolvePost(ctx context.Context, postID, reviewerID string) (*models.NeedPost, error)
}

type postReader interface {
	GetByID(ctx context.Context, id string) (*models.NeedPost, error)
	CountByStatus(ctx context.Context) (map[models.PostStatus]int64, error)
}

type donationTotals interface {
	Totals(ctx context.Context) (int64, int64, error)
}

// FlagInput is a community report. Anonymous reporters are told apart by IP.
type FlagInput struct {
	PostID     string
	ReporterID *string
	ClientIP   string
	Reason     models.FlagReason
	Details    string
}

func (in *FlagInput) Validate() error {
	in.Details = strings.TrimSpace(in.Details)

	var errs []models.FieldError
	if !in.Reason.IsValid() {
		errs = append(errs, models.FieldError{Field: "reason", Message: "unknown reason"})
	}
	if utf8.RuneCountInString(in.Details) > 1000 {
		errs = append(errs, models.FieldError{Field: "details", Message: "must be at most 1000 characters"})
	}
	if in.ReporterID == nil && in.ClientIP == "" {
		errs = append(errs, models.FieldError{Field: "reporter", Message: "required"})
	}
	if len(errs) > 0 {
		return &models.ValidationError{Errors: errs}
	}
	return nil
}

func (in *FlagInput) fingerprint() string {
	if in.ReporterID != nil {
		return "user:" + *in.ReporterID
	}
	return "ip:" + in.ClientIP
}

type ModerationService struct {
	flags     flagStore
	posts     postReader
	donations donationTotals
	notifier  Notifier
	threshold int
	dispatch  Dispatcher
}

func NewModerationService(flags flagStore, posts postReader, donations donationTotals, notifier Notifier, threshold int) *ModerationService {
	if threshold < 1 {
		threshold = 5
	}
	return &ModerationService{
		flags:     flags,
		posts:     posts,
		donations: donations,
		notifier:  notifier,
		threshold: threshold,
		dispatch:  goDispatch,
	}
}

// SetDispatcher replaces how owner notifications are scheduled.
func (s *ModerationService) SetDispatcher(d Dispatcher) {
	s.dispatch = d
}

// Flag files a report. Each reporter may report a post once; the report that
// reaches the threshold moves the post to flagged.
func (s *ModerationService) Flag(ctx context.Context, in FlagInput) (*models.FlagOutcome, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusHidden {
		return nil, models.NewConflictError("post is already hidden")
	}

	flag := &models.PostFlag{
		ID:         uuid.New().String(),
		PostID:     in.PostID,
		ReporterID: in.ReporterID,
		ReporterFP: in.fingerprint(),
		Reason:     in.Reason,
		Details:    in.Details,
		Status:     models.FlagStatusPending,
	}
	outcome, err := s.flags.Report(ctx, flag, s.threshold)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("post_id", in.PostID).
		Str("reason", string(in.Reason)).
		Int("flag_count", outcome.FlagCount).
		Bool("escalated", outcome.Escalated).
		Msg("post reported")

	if outcome.Escalated {
		post.Status = outcome.Status
		s.notifyOwner(ctx, post, models.NotificationTypePostFlagged)
	}
	return outcome, nil
}

// ListFlags returns reports, optionally by status.
func (s *ModerationService) ListFlags(ctx context.Context, status models.FlagStatus, page, limit int) ([]models.PostFlag, int64, error) {
	if status != "" && status != models.FlagStatusPending && status != models.FlagStatusApproved && status != models.FlagStatusDismissed {
		return nil, 0, models.NewValidationError("status", "unknown flag status")
	}
	return s.flags.List(ctx, status, page, limit)
}

// Approve upholds a report and moves its post to flagged.
func (s *ModerationService) Approve(ctx context.Context, flagID, reviewerID string) (*models.PostFlag, error) {
	flag, post, err := s.flags.Review(ctx, flagID, models.FlagStatusApproved, reviewerID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("flag_id", flagID).Str("post_id", post.ID).Str("reviewer_id", reviewerID).Msg("flag approved")
	if post.Status == models.PostStatusFlagged {
		s.notifyOwner(ctx, post, models.NotificationTypePostFlagged)
	}
	return flag, nil
}

// Dismiss closes a report without touching its post.
func (s *ModerationService) Dismiss(ctx context.Context, flagID, reviewerID string) (*models.PostFlag, error) {
	flag, _, err := s.flags.Review(ctx, flagID, models.FlagStatusDismissed, reviewerID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("flag_id", flagID).Str("reviewer_id", reviewerID).Msg("flag dismissed")
	return flag, nil
}

// ResolveFlags clears a post's reports and returns a flagged post to the
// status its quantities imply.
func (s *ModerationService) ResolveFlags(ctx context.Context, postID, reviewerID string) (*models.NeedPost, error) {
	before, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	post, err := s.flags.ResolvePost(ctx, postID, reviewerID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("post_id", postID).Str("status", string(post.Status)).Str("reviewer_id", reviewerID).Msg("post flags resolved")
	if before.Status == models.PostStatusFlagged && post.Status.IsPublic() {
		s.notifyOwner(ctx, post, models.NotificationTypePostRestored)
	}
	return post, nil
}

// Summary returns the moderation counters.
func (s *ModerationService) Summary(ctx context.Context) (*models.ModerationSummary, error) {
	byStatus, err := s.posts.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.flags.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	donations, items, err := s.donations.Totals(ctx)
	if err != nil {
		return nil, err
	}
	return &models.ModerationSummary{
		PostsByStatus:  byStatus,
		PendingFlags:   pending,
		TotalDonations: donations,
		ItemsPledged:   items,
	}, nil
}

func (s *ModerationService) notifyOwner(ctx context.Context, post *models.NeedPost, kind models.NotificationType) {
	if post.UserID == nil || s.notifier == nil {
		return
	}

	params := models.NotifyParams{
		UserID:   *post.UserID,
		Type:     kind,
		Link:     "/posts/" + post.ID,
		Metadata: map[string]interface{}{"post_id": post.ID},
	}
	switch kind {
	case models.NotificationTypePostFlagged:
		params.Title = "Your post is under review"
		params.Message = fmt.Sprintf("\"%s\" was reported by the community and is hidden until a moderator reviews it", post.Title)
	case models.NotificationTypePostRestored:
		params.Title = "Your post is visible again"
		params.Message = fmt.Sprintf("A moderator reviewed \"%s\" and restored it", post.Title)
	}

	sideCtx := context.WithoutCancel(ctx)
	postID := post.ID
	s.dispatch(func() {
		if err := s.notifier.Notify(sideCtx, params); err != nil {
			log.Error().Err(err).Str("post_id", postID).Msg("failed to send moderation notification")
		}
	})
}
