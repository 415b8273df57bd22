package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"inkwell/internal/featureflags"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewService_RecordViewSplitsAudience(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "author")
	reader := testutil.SeedUser(t, f.db, "reader")
	post := testutil.SeedPost(t, f.db, author.ID, "hello")
	svc := NewViewService(f.posts, f.views, nil)

	counters, err := svc.RecordView(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters.TotalViews)
	assert.Equal(t, int64(1), counters.AuthenticatedViews)
	assert.Zero(t, counters.PublicViews)

	counters, err = svc.RecordView(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counters.TotalViews)
	assert.Equal(t, int64(1), counters.PublicViews)

	p := f.reload(t, post.ID)
	assert.Equal(t, p.TotalViews, p.AuthenticatedViews+p.PublicViews)

	var logs []models.ViewLog
	require.NoError(t, f.db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, reader.ID, *logs[0].UserID)
	assert.True(t, logs[0].IsAuthenticated)
	assert.Nil(t, logs[1].UserID)
}

func TestViewService_RecordViewMissingPost(t *testing.T) {
	f := newFixture(t)
	svc := NewViewService(f.posts, f.views, nil)

	_, err := svc.RecordView(context.Background(), 404, 0)
	assertCode(t, err, models.CodeNotFound)

	var n int64
	require.NoError(t, f.db.Model(&models.ViewLog{}).Count(&n).Error)
	assert.Zero(t, n, "the view log insert rolls back with the counter update")
}

func TestViewService_ConsumptionKeepsMaxDepth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "author")
	reader := testutil.SeedUser(t, f.db, "reader")
	post := testutil.SeedPost(t, f.db, author.ID, "hello")
	svc := NewViewService(f.posts, f.views, featureflags.NewManager(""))

	report := func(depth float64) *models.ConsumptionRecord {
		rec, err := svc.RecordConsumption(ctx, RecordConsumptionInput{
			PostID: post.ID, UserID: reader.ID, Kind: models.ConsumptionScroll, Depth: depth,
		})
		require.NoError(t, err)
		return rec
	}

	assert.InDelta(t, 0.4, report(0.4).MaxDepth, 1e-9)
	assert.InDelta(t, 0.7, report(0.7).MaxDepth, 1e-9)
	assert.InDelta(t, 0.7, report(0.2).MaxDepth, 1e-9)
	assert.InDelta(t, 1.0, report(3).MaxDepth, 1e-9)

	rec := report(0.5)
	assert.Equal(t, fmt.Sprintf("user:%d", reader.ID), rec.ViewerKey)

	var n int64
	require.NoError(t, f.db.Model(&models.ConsumptionRecord{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestViewService_ConsumptionRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "author")
	post := testutil.SeedPost(t, f.db, author.ID, "hello")
	draft := testutil.SeedDraft(t, f.db, author.ID, "wip")
	svc := NewViewService(f.posts, f.views, nil)

	_, err := svc.RecordConsumption(ctx, RecordConsumptionInput{PostID: post.ID, Kind: "audio", SessionID: "session-123"})
	assertValidationError(t, err)

	_, err = svc.RecordConsumption(ctx, RecordConsumptionInput{PostID: post.ID, Kind: models.ConsumptionVideo})
	assertValidationError(t, err)

	_, err = svc.RecordConsumption(ctx, RecordConsumptionInput{PostID: draft.ID, Kind: models.ConsumptionVideo, SessionID: "session-123"})
	assertCode(t, err, models.CodeNotFound)

	rec, err := svc.RecordConsumption(ctx, RecordConsumptionInput{PostID: post.ID, Kind: models.ConsumptionVideo, SessionID: "session-123", Depth: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "session:session-123", rec.ViewerKey)

	off := NewViewService(f.posts, f.views, featureflags.NewManager("consumption_tracking=off"))
	_, err = off.RecordConsumption(ctx, RecordConsumptionInput{PostID: post.ID, Kind: models.ConsumptionVideo, SessionID: "session-123"})
	assertCode(t, err, models.CodeForbidden)
}

func TestViewerKey(t *testing.T) {
	key, err := ViewerKey(7, "ignored")
	require.NoError(t, err)
	assert.Equal(t, "user:7", key)

	for _, bad := range []string{"", "short", "has space in it", strings.Repeat("a", 65)} {
		_, err := ViewerKey(0, bad)
		assert.Error(t, err, bad)
	}
}

func TestClampDepth(t *testing.T) {
	assert.Equal(t, 0.0, ClampDepth(-0.5))
	assert.Equal(t, 1.0, ClampDepth(1.5))
	assert.Equal(t, 0.25, ClampDepth(0.25))
}
