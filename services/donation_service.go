package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"reliefhub-api/models"
	"reliefhub-api/repositories"
)

// ExcessPolicy decides what happens to the part of a donation that goes past
// a post's goal.
type ExcessPolicy string

const (
	// ExcessClamp caps the post total at the goal and keeps the donation's full quantity.
	ExcessClamp ExcessPolicy = "clamp"
	// ExcessReject refuses donations larger than the remaining need.
	ExcessReject ExcessPolicy = "reject"
)

const (
	maxDonorNameLength   = 100
	maxDonationQuantity  = 100000
	maxDonationMsgLength = 1000
)

type donationStore interface {
	ApplyDonation(ctx context.Context, donation *models.Donation, capAtGoal bool, guard repositories.DonationGuard) (*models.NeedPost, *models.NeedPost, error)
	GetByID(ctx context.Context, id string) (*models.Donation, error)
	ListByPost(ctx context.Context, postID string, page, limit int) ([]models.Donation, int64, error)
	ListByDonor(ctx context.Context, donorID string, page, limit int) ([]models.Donation, int64, error)
	ConfirmReceipt(ctx context.Context, id string, at time.Time) error
}

// Notifier delivers in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, params models.NotifyParams) error
}

type donationRecorder interface {
	RecordDonation(ctx context.Context, donorID string, quantity int) error
}

// EventPublisher fans domain events out to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
}

// Dispatcher runs post-commit side effects. The default runs them on a new goroutine.
type Dispatcher func(fn func())

func goDispatch(fn func()) { go fn() }

// CreateDonationInput is a pledge against a need post.
type CreateDonationInput struct {
	PostID    string
	DonorName string
	Quantity  int
	Message   string
	DonorID   *string
}

// Validate trims the input and checks its fields.
func (in *CreateDonationInput) Validate() error {
	in.DonorName = strings.TrimSpace(in.DonorName)
	in.Message = strings.TrimSpace(in.Message)

	var errs []models.FieldError
	if in.PostID == "" {
		errs = append(errs, models.FieldError{Field: "post_id", Message: "required"})
	}
	switch {
	case in.DonorName == "":
		errs = append(errs, models.FieldError{Field: "donor_name", Message: "required"})
	case utf8.RuneCountInString(in.DonorName) > maxDonorNameLength:
		errs = append(errs, models.FieldError{Field: "donor_name", Message: fmt.Sprintf("must be at most %d characters", maxDonorNameLength)})
	}
	switch {
	case in.Quantity <= 0:
		errs = append(errs, models.FieldError{Field: "quantity", Message: "must be positive"})
	case in.Quantity > maxDonationQuantity:
		errs = append(errs, models.FieldError{Field: "quantity", Message: fmt.Sprintf("must be at most %d", maxDonationQuantity)})
	}
	if utf8.RuneCountInString(in.Message) > maxDonationMsgLength {
		errs = append(errs, models.FieldError{Field: "message", Message: fmt.Sprintf("must be at most %d characters", maxDonationMsgLength)})
	}
	if len(errs) > 0 {
		return &models.ValidationError{Errors: errs}
	}
	return nil
}

// Reconciliation is the post state a donation leads to.
type Reconciliation struct {
	QuantityDonated int
	Status          models.PostStatus
	Credited        int
}

// Reconcile applies a donation of quantity to post without touching storage.
// Fulfilled and moderated posts refuse donations. Under ExcessClamp the total
// never passes the goal; under ExcessReject an oversized donation is invalid.
func Reconcile(post models.NeedPost, quantity int, policy ExcessPolicy) (Reconciliation, error) {
	if post.Status == models.PostStatusFulfilled || post.QuantityDonated >= post.QuantityNeeded {
		return Reconciliation{}, models.NewConflictError("post already fulfilled")
	}
	if post.Status.IsModerated() {
		return Reconciliation{}, models.NewConflictError("post is under moderation")
	}

	remaining := post.Remaining()
	if policy == ExcessReject && quantity > remaining {
		return Reconciliation{}, models.NewValidationError("quantity", fmt.Sprintf("only %d more needed", remaining))
	}

	total := post.QuantityDonated + quantity
	if total > post.QuantityNeeded {
		total = post.QuantityNeeded
	}

	status := models.PostStatusActive
	if total >= post.QuantityNeeded {
		status = models.PostStatusFulfilled
	}

	return Reconciliation{
		QuantityDonated: total,
		Status:          status,
		Credited:        total - post.QuantityDonated,
	}, nil
}

type DonationService struct {
	donations donationStore
	notifier  Notifier
	stats     donationRecorder
	events    EventPublisher
	policy    ExcessPolicy
	dispatch  Dispatcher
	now       func() time.Time
}

func NewDonationService(
	donations donationStore,
	notifier Notifier,
	stats donationRecorder,
	events EventPublisher,
	policy ExcessPolicy,
) *DonationService {
	if policy == "" {
		policy = ExcessClamp
	}
	return &DonationService{
		donations: donations,
		notifier:  notifier,
		stats:     stats,
		events:    events,
		policy:    policy,
		dispatch:  goDispatch,
		now:       time.Now,
	}
}

// SetDispatcher replaces how side effects are scheduled.
func (s *DonationService) SetDispatcher(d Dispatcher) {
	s.dispatch = d
}

// CreateDonation records a donation and credits it to its post atomically.
// Notifications, donor statistics and events follow after commit; their
// failures are logged and never fail the donation.
func (s *DonationService) CreateDonation(ctx context.Context, in CreateDonationInput) (*models.DonationResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	donation := &models.Donation{
		ID:        uuid.New().String(),
		PostID:    in.PostID,
		DonorID:   in.DonorID,
		DonorName: in.DonorName,
		Quantity:  in.Quantity,
		Message:   in.Message,
	}

	guard := func(post *models.NeedPost) error {
		_, err := Reconcile(*post, in.Quantity, s.policy)
		return err
	}

	before, after, err := s.donations.ApplyDonation(ctx, donation, s.policy == ExcessClamp, guard)
	if err != nil {
		return nil, err
	}

	result := &models.DonationResult{
		Donation:  *donation,
		Post:      *after,
		Fulfilled: before.Status != models.PostStatusFulfilled && after.Status == models.PostStatusFulfilled,
		Credited:  after.QuantityDonated - before.QuantityDonated,
	}

	log.Info().
		Str("donation_id", donation.ID).
		Str("post_id", donation.PostID).
		Int("quantity", donation.Quantity).
		Int("credited", result.Credited).
		Str("post_status", string(after.Status)).
		Msg("donation recorded")

	sideCtx := context.WithoutCancel(ctx)
	s.dispatch(func() { s.afterDonation(sideCtx, result) })

	return result, nil
}

func (s *DonationService) afterDonation(ctx context.Context, result *models.DonationResult) {
	donation := result.Donation
	post := result.Post
	link := "/posts/" + post.ID

	if post.UserID != nil && s.notifier != nil {
		err := s.notifier.Notify(ctx, models.NotifyParams{
			UserID:  *post.UserID,
			Type:    models.NotificationTypeDonationReceived,
			Title:   "New donation received",
			Message: fmt.Sprintf("%s pledged %d %s for \"%s\"", donation.DonorName, donation.Quantity, unitOrItems(post.Unit), post.Title),
			Link:    link,
			Metadata: map[string]interface{}{
				"post_id":     post.ID,
				"donation_id": donation.ID,
				"donor_name":  donation.DonorName,
				"quantity":    donation.Quantity,
			},
		})
		if err != nil {
			log.Error().Err(err).Str("donation_id", donation.ID).Msg("failed to send donation notification")
		}

		if result.Fulfilled {
			err := s.notifier.Notify(ctx, models.NotifyParams{
				UserID:  *post.UserID,
				Type:    models.NotificationTypePostFulfilled,
				Title:   "Your need has been fulfilled",
				Message: fmt.Sprintf("\"%s\" has received all %d %s requested", post.Title, post.QuantityNeeded, unitOrItems(post.Unit)),
				Link:    link,
				Metadata: map[string]interface{}{
					"post_id": post.ID,
				},
			})
			if err != nil {
				log.Error().Err(err).Str("post_id", post.ID).Msg("failed to send fulfilled notification")
			}
		}
	}

	if donation.DonorID != nil && s.stats != nil {
		if err := s.stats.RecordDonation(ctx, *donation.DonorID, donation.Quantity); err != nil {
			log.Error().Err(err).Str("donor_id", *donation.DonorID).Msg("failed to update donor profile")
		}
	}

	if s.events != nil {
		err := s.events.Publish(ctx, "donation.created", map[string]interface{}{
			"donation_id":      donation.ID,
			"post_id":          post.ID,
			"quantity":         donation.Quantity,
			"credited":         result.Credited,
			"quantity_donated": post.QuantityDonated,
			"quantity_needed":  post.QuantityNeeded,
			"status":           post.Status,
		})
		if err != nil {
			log.Warn().Err(err).Str("donation_id", donation.ID).Msg("failed to publish donation event")
		}
	}
}

// ListByPost returns a post's donations.
func (s *DonationService) ListByPost(ctx context.Context, postID string, page, limit int) ([]models.Donation, int64, error) {
	return s.donations.ListByPost(ctx, postID, page, limit)
}

// ListByDonor returns an account's donations.
func (s *DonationService) ListByDonor(ctx context.Context, donorID string, page, limit int) ([]models.Donation, int64, error) {
	return s.donations.ListByDonor(ctx, donorID, page, limit)
}

// ConfirmReceipt lets the post owner mark a donation as received. The donor,
// if known, is told about it.
func (s *DonationService) ConfirmReceipt(ctx context.Context, donationID string, access Access) (*models.Donation, error) {
	donation, err := s.donations.GetByID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if donation.Post == nil {
		return nil, errors.Wrap(models.ErrNotFound, "donation post")
	}
	if err := AuthorizePost(donation.Post, access); err != nil {
		return nil, err
	}

	at := s.now().UTC()
	if err := s.donations.ConfirmReceipt(ctx, donation.ID, at); err != nil {
		return nil, err
	}
	donation.ReceiptConfirmed = true
	donation.ReceiptConfirmedAt = &at

	if donation.DonorID != nil && s.notifier != nil {
		post := donation.Post
		params := models.NotifyParams{
			UserID:  *donation.DonorID,
			Type:    models.NotificationTypeDonationConfirmed,
			Title:   "Your donation arrived",
			Message: fmt.Sprintf("The requester of \"%s\" confirmed receiving your %d %s", post.Title, donation.Quantity, unitOrItems(post.Unit)),
			Link:    "/posts/" + post.ID,
			Metadata: map[string]interface{}{
				"post_id":     post.ID,
				"donation_id": donation.ID,
			},
		}
		sideCtx := context.WithoutCancel(ctx)
		id := donation.ID
		s.dispatch(func() {
			if err := s.notifier.Notify(sideCtx, params); err != nil {
				log.Error().Err(err).Str("donation_id", id).Msg("failed to send receipt notification")
			}
		})
	}

	return donation, nil
}

func unitOrItems(unit string) string {
	if unit == "" {
		return "items"
	}
	return unit
}
