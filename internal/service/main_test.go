package service

import (
	"context"
	"errors"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/email"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fixture wires services to a fresh in-memory database.
type fixture struct {
	db          *gorm.DB
	users       repository.UserRepository
	posts       repository.PostRepository
	engagements repository.EngagementRepository
	views       repository.ViewRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	return &fixture{
		db:          db,
		users:       repository.NewUserRepository(db),
		posts:       repository.NewPostRepository(db),
		engagements: repository.NewEngagementRepository(db),
		views:       repository.NewViewRepository(db),
	}
}

func (f *fixture) isAdmin(ctx context.Context, userID uint) (bool, error) {
	return NewUserService(f.users, "").IsAdmin(ctx, userID)
}

func (f *fixture) postService(mode config.PlatformMode) *PostService {
	return NewPostService(f.posts, f.users, mode, f.isAdmin)
}

func (f *fixture) reload(t *testing.T, postID uint) *models.Post {
	t.Helper()
	var p models.Post
	require.NoError(t, f.db.First(&p, postID).Error)
	return &p
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg email.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func templateIs(name string) interface{} {
	return mock.MatchedBy(func(msg email.Message) bool { return msg.Template == name })
}
