package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cliparr/ddd/application/cqe"
	"cliparr/ddd/domain/entity"
	"cliparr/ddd/domain/vo"
	"cliparr/pkg/errno"
)

func TestViewCapDeniesFourthAccess(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeExecutor{})
	media := vo.MediaItem{RatingKey: "42", Title: "Heat", Type: vo.MediaTypeMovie}
	c := entity.NewClipEntity("capped", "u1", media, "clip", 0, 1_000, 24*365, intPtr(3), time.Now())
	require.NoError(t, h.clips.Create(ctx, c))

	views := NewViewApp(h.clips, h.views, "secret", nil)
	for i := 0; i < 3; i++ {
		ok, err := views.ConsumeView(ctx, "capped")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := views.ConsumeView(ctx, "capped")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := h.clips.GetByID(ctx, "capped")
	require.NoError(t, err)
	assert.False(t, views.Accessible(stored, time.Now()))
	assert.False(t, views.Accessible(nil, time.Now()))
}

func TestRecordViewHashesAndClamps(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeExecutor{})
	seedClip(t, h, "c1", time.Now(), 24)

	views := NewViewApp(h.clips, h.views, "secret", nil)
	require.NoError(t, views.RecordView(ctx, &cqe.RecordViewReq{ClipID: "c1", SessionKey: "1.2.3.4|ua", WatchPercentage: -4, UserAgent: "ua"}))
	require.NoError(t, views.RecordView(ctx, &cqe.RecordViewReq{ClipID: "c1", SessionKey: "1.2.3.4|ua", WatchPercentage: 250}))

	rows, err := h.views.ListByClip(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0].SessionHash, 64)
	assert.Equal(t, rows[0].SessionHash, rows[1].SessionHash)
	assert.NotContains(t, rows[0].SessionHash, "1.2.3.4")
	pcts := []float64{rows[0].WatchPercentage, rows[1].WatchPercentage}
	assert.ElementsMatch(t, []float64{0, 100}, pcts)

	other := NewViewApp(h.clips, h.views, "another-secret", nil).(*viewAppImpl)
	assert.NotEqual(t, rows[0].SessionHash, other.sessionHash("1.2.3.4|ua"))

	assert.ErrorIs(t, views.RecordView(ctx, &cqe.RecordViewReq{ClipID: "missing"}), errno.ErrClipNotFound)
}
