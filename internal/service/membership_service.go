package service

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

const (
	maxTierNameLen  = 80
	maxTierPriceCts = 100000
)

type CreateTierInput struct {
	CreatorID   uint
	Name        string
	Description string
	PriceCents  int64
}

// MembershipService manages creator tiers and reader memberships. It only
// reports what tiers earn; collecting payment is out of its hands.
type MembershipService struct {
	memberships repository.MembershipRepository
	users       repository.UserRepository
}

func NewMembershipService(memberships repository.MembershipRepository, users repository.UserRepository) *MembershipService {
	return &MembershipService{memberships: memberships, users: users}
}

func (s *MembershipService) CreateTier(ctx context.Context, in CreateTierInput) (*models.MembershipTier, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Name is required")
	}
	if len(name) > maxTierNameLen {
		return nil, models.NewValidationError("Name too long (max 80 characters)")
	}
	if in.PriceCents <= 0 || in.PriceCents > maxTierPriceCts {
		return nil, models.NewValidationError("price_cents must be between 1 and 100000")
	}
	tier := &models.MembershipTier{
		CreatorID:   in.CreatorID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		PriceCents:  in.PriceCents,
		Active:      true,
	}
	if err := s.memberships.CreateTier(ctx, tier); err != nil {
		return nil, models.NewInternalError(err)
	}
	return tier, nil
}

func (s *MembershipService) ListTiers(ctx context.Context, creatorID uint) ([]*models.MembershipTier, error) {
	if _, err := s.users.GetByID(ctx, creatorID); err != nil {
		return nil, err
	}
	return s.memberships.ListTiers(ctx, creatorID, true)
}

func (s *MembershipService) Join(ctx context.Context, userID, tierID uint) (*models.Membership, error) {
	tier, err := s.memberships.GetTier(ctx, tierID)
	if err != nil {
		return nil, err
	}
	if !tier.Active {
		return nil, models.NewValidationError("This tier is no longer available")
	}
	if tier.CreatorID == userID {
		return nil, models.NewValidationError("You cannot join your own tier")
	}
	return s.memberships.Join(ctx, userID, tierID)
}

func (s *MembershipService) Leave(ctx context.Context, userID, tierID uint) error {
	left, err := s.memberships.Leave(ctx, userID, tierID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if !left {
		return models.NewNotFoundError("Membership", tierID)
	}
	return nil
}

// Payouts summarises monthly earnings per tier. Creators must link a
// wallet first.
func (s *MembershipService) Payouts(ctx context.Context, creatorID uint) (*models.PayoutSummary, error) {
	user, err := s.users.GetByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !user.HasVerifiedWallet() {
		return nil, models.NewForbiddenError("Verify a wallet before viewing payouts")
	}
	tiers, err := s.memberships.Payouts(ctx, creatorID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if tiers == nil {
		tiers = []models.TierPayout{}
	}
	summary := &models.PayoutSummary{
		CreatorID:     creatorID,
		WalletAddress: *user.WalletAddress,
		Tiers:         tiers,
	}
	for _, t := range tiers {
		summary.TotalCents += t.MonthlyCents
	}
	return summary, nil
}
