package service

import (
	"context"
	"log/slog"
	"time"

	"inkwell/internal/email"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// Subscribe outcomes.
const (
	SubscriptionCreated     = "subscribed"
	SubscriptionReactivated = "resubscribed"
	SubscriptionUnchanged   = "already_subscribed"
)

type SubscribeResult struct {
	Status     string                  `json:"status"`
	Subscriber *models.EmailSubscriber `json:"subscriber"`
}

// SubscriptionService manages newsletter subscriptions keyed by lowercased email.
type SubscriptionService struct {
	subs    repository.SubscriberRepository
	sender  email.Sender
	baseURL string
	now     func() time.Time
}

func NewSubscriptionService(subs repository.SubscriberRepository, sender email.Sender, baseURL string) *SubscriptionService {
	return &SubscriptionService{subs: subs, sender: sender, baseURL: baseURL, now: time.Now}
}

// Subscribe creates, reactivates, or leaves an active subscription alone.
// The confirmation email is only sent for new subscribers.
func (s *SubscriptionService) Subscribe(ctx context.Context, address string) (*SubscribeResult, error) {
	address = validation.NormalizeEmail(address)
	if err := validation.ValidateEmail(address); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.subs.GetByEmail(ctx, address)
	switch {
	case err == nil && existing.IsActive:
		return &SubscribeResult{Status: SubscriptionUnchanged, Subscriber: existing}, nil
	case err == nil:
		now := s.now()
		if err := s.subs.SetActive(ctx, existing.ID, true, now); err != nil {
			return nil, models.NewInternalError(err)
		}
		existing.IsActive = true
		existing.SubscribedAt = now
		existing.UnsubscribedAt = nil
		return &SubscribeResult{Status: SubscriptionReactivated, Subscriber: existing}, nil
	case !isNotFound(err):
		return nil, err
	}

	sub := &models.EmailSubscriber{Email: address, IsActive: true, SubscribedAt: s.now()}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, models.NewInternalError(err)
	}
	if s.sender != nil {
		if err := s.sender.Send(ctx, email.SubscriptionEmail(s.baseURL, address)); err != nil {
			observability.LogBestEffortFailure(ctx, nil, "subscription_email", err,
				slog.Uint64("subscriber_id", uint64(sub.ID)))
		}
	}
	return &SubscribeResult{Status: SubscriptionCreated, Subscriber: sub}, nil
}

// Unsubscribe deactivates a subscription. Unknown addresses are NotFound.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, address string) error {
	address = validation.NormalizeEmail(address)
	if err := validation.ValidateEmail(address); err != nil {
		return models.NewValidationError(err.Error())
	}
	sub, err := s.subs.GetByEmail(ctx, address)
	if err != nil {
		return err
	}
	if !sub.IsActive {
		return nil
	}
	if err := s.subs.SetActive(ctx, sub.ID, false, s.now()); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
