package database

import "inkwell/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Like{},
		&models.LegacyPostLike{},
		&models.Comment{},
		&models.Bookmark{},
		&models.ViewLog{},
		&models.ConsumptionRecord{},
		&models.ImageUploadRateLimit{},
		&models.EmailSubscriber{},
		&models.EmailVerificationToken{},
		&models.Message{},
		&models.BetaApplication{},
		&models.MembershipTier{},
		&models.Membership{},
		&models.WalletChallenge{},
	}
}
