package repository

import (
	"context"

	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipRepository stores creator tiers and reader memberships.
type MembershipRepository interface {
	CreateTier(ctx context.Context, tier *models.MembershipTier) error
	GetTier(ctx context.Context, id uint) (*models.MembershipTier, error)
	ListTiers(ctx context.Context, creatorID uint, activeOnly bool) ([]*models.MembershipTier, error)
	// Join creates the membership or reactivates a cancelled one.
	Join(ctx context.Context, userID, tierID uint) (*models.Membership, error)
	// Leave cancels an active membership and reports whether one existed.
	Leave(ctx context.Context, userID, tierID uint) (bool, error)
	Payouts(ctx context.Context, creatorID uint) ([]models.TierPayout, error)
}

type membershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) CreateTier(ctx context.Context, tier *models.MembershipTier) error {
	return r.db.WithContext(ctx).Create(tier).Error
}

func (r *membershipRepository) GetTier(ctx context.Context, id uint) (*models.MembershipTier, error) {
	var tier models.MembershipTier
	if err := r.db.WithContext(ctx).First(&tier, id).Error; err != nil {
		return nil, lookupErr(err, "Tier", id)
	}
	return &tier, nil
}

func (r *membershipRepository) ListTiers(ctx context.Context, creatorID uint, activeOnly bool) ([]*models.MembershipTier, error) {
	q := r.db.WithContext(ctx).Where("creator_id = ?", creatorID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var tiers []*models.MembershipTier
	err := q.Order("price_cents ASC, id ASC").Find(&tiers).Error
	return tiers, err
}

func (r *membershipRepository) Join(ctx context.Context, userID, tierID uint) (*models.Membership, error) {
	m := models.Membership{UserID: userID, TierID: tierID, Status: models.MembershipActive}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "tier_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"status": models.MembershipActive}),
	}).Create(&m).Error
	if err != nil {
		return nil, err
	}
	var out models.Membership
	if err := r.db.WithContext(ctx).Where("user_id = ? AND tier_id = ?", userID, tierID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *membershipRepository) Leave(ctx context.Context, userID, tierID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND tier_id = ? AND status = ?", userID, tierID, models.MembershipActive).
		Update("status", models.MembershipCancelled)
	return res.RowsAffected > 0, res.Error
}

// Payouts returns one row per tier of creatorID with its active member count.
func (r *membershipRepository) Payouts(ctx context.Context, creatorID uint) ([]models.TierPayout, error) {
	var rows []models.TierPayout
	err := r.db.WithContext(ctx).
		Table("membership_tiers AS t").
		Select("t.id AS tier_id, t.name AS name, t.price_cents AS price_cents, COUNT(m.id) AS active_members").
		Joins("LEFT JOIN memberships AS m ON m.tier_id = t.id AND m.status = ?", models.MembershipActive).
		Where("t.creator_id = ?", creatorID).
		Group("t.id, t.name, t.price_cents").
		Order("t.price_cents ASC, t.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].MonthlyCents = rows[i].PriceCents * rows[i].ActiveMembers
	}
	return rows, nil
}
