package bootstrap

import (
	"context"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func devConfig() *config.Config {
	return &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
		DevRootPassword:  "Root-Password-77",
	}
}

func TestPrepare_CreatesRootAdmin(t *testing.T) {
	db := testutil.NewTestDB(t)
	require.NoError(t, Prepare(context.Background(), devConfig(), db))

	var root models.User
	require.NoError(t, db.First(&root, 1).Error)
	assert.Equal(t, "inkwell_root", root.Username)
	assert.Equal(t, "root@inkwell.local", root.Email)
	assert.True(t, root.IsAdmin)
	assert.True(t, root.BetaApproved)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(root.Password), []byte("Root-Password-77")))
}

func TestPrepare_PromotesExistingUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	existing := testutil.SeedUser(t, db, "early_bird")
	require.Equal(t, uint(1), existing.ID)

	require.NoError(t, Prepare(context.Background(), devConfig(), db))

	var root models.User
	require.NoError(t, db.First(&root, 1).Error)
	assert.True(t, root.IsAdmin)
	assert.Equal(t, existing.Username, root.Username, "credentials are kept unless forced")
}

func TestPrepare_RequiresPassword(t *testing.T) {
	cfg := devConfig()
	cfg.DevRootPassword = ""
	err := Prepare(context.Background(), cfg, testutil.NewTestDB(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEV_ROOT_PASSWORD")
}

func TestPrepare_SkippedOutsideDevelopment(t *testing.T) {
	db := testutil.NewTestDB(t)
	cfg := devConfig()
	cfg.Env = "production"
	cfg.DevSeedPreset = "small"
	require.NoError(t, Prepare(context.Background(), cfg, db))

	var users int64
	db.Model(&models.User{}).Count(&users)
	assert.Zero(t, users)
}

func TestPrepare_SeedsEmptyDatabaseOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	cfg := devConfig()
	cfg.DevBootstrapRoot = false
	cfg.DevSeedPreset = "small"

	require.NoError(t, Prepare(context.Background(), cfg, db))
	var users int64
	db.Model(&models.User{}).Count(&users)
	require.Positive(t, users)

	require.NoError(t, Prepare(context.Background(), cfg, db))
	var again int64
	db.Model(&models.User{}).Count(&again)
	assert.Equal(t, users, again)
}

func TestPrepare_UnknownPreset(t *testing.T) {
	cfg := devConfig()
	cfg.DevBootstrapRoot = false
	cfg.DevSeedPreset = "gigantic"
	assert.Error(t, Prepare(context.Background(), cfg, testutil.NewTestDB(t)))
}
