package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cliparr/ddd/application/cqe"
	"cliparr/ddd/infrastructure/database/persistence"
	"cliparr/pkg/errno"
)

func TestSettingsOverlayAndUpdate(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewSettingRepository(openTestDB(t))
	settings := NewSettingsApp(repo, testDefaults)

	assert.Equal(t, testDefaults, settings.Current(ctx))

	require.NoError(t, repo.Upsert(ctx, map[string]string{"max_ttl_hours": "not-a-number", "default_ttl_hours": "6"}))
	cur := settings.Current(ctx)
	assert.Equal(t, 6, cur.DefaultTTLHours)
	assert.Equal(t, testDefaults.MaxTTLHours, cur.MaxTTLHours)

	updated, err := settings.Update(ctx, &cqe.UpdateSettingsReq{MaxConcurrentTranscodes: intPtr(4), CleanupGraceHours: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.MaxConcurrentTranscodes)
	assert.Equal(t, 0, updated.CleanupGraceHours)
	assert.Equal(t, 6, updated.DefaultTTLHours)

	_, err = settings.Update(ctx, &cqe.UpdateSettingsReq{MaxClipDuration: intPtr(0)})
	assert.ErrorIs(t, err, errno.ErrSettingInvalid)
	_, err = settings.Update(ctx, &cqe.UpdateSettingsReq{CleanupGraceHours: intPtr(-1)})
	assert.ErrorIs(t, err, errno.ErrSettingInvalid)
	assert.Equal(t, 4, settings.Current(ctx).MaxConcurrentTranscodes)
}
