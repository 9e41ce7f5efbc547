package app

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cliparr/ddd/application/cqe"
	"cliparr/pkg/errno"
)

func TestShareLinksEncoding(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeExecutor{})
	resp, err := h.app.CreateClip(ctx, "u1", "tok", &cqe.CreateClipReq{RatingKey: "42", StartMs: 0, EndMs: 1_000, Title: strPtr("Big & Loud")})
	require.NoError(t, err)
	h.app.Wait()

	share := NewShareApp(h.clips, "https://clips.example")
	links, err := share.ShareLinks(ctx, "u1", resp.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.ShareURL, links.URL)
	text := "Check%20out%20this%20clip%3A%20Big%20%26%20Loud"
	assert.True(t, strings.HasPrefix(links.Links.WhatsApp, "https://wa.me/?text="+text+"%20https%3A%2F%2Fclips.example%2Fc%2F"))
	assert.True(t, strings.HasPrefix(links.Links.IMessage, "sms:&body="+text))
	assert.True(t, strings.HasPrefix(links.Links.Email, "mailto:?subject=Big%20%26%20Loud&body="))
	assert.Contains(t, links.Links.Telegram, "&text="+text)
	assert.Contains(t, links.Links.Twitter, "&url=https%3A%2F%2F")

	_, err = share.ShareLinks(ctx, "u2", resp.ID)
	assert.ErrorIs(t, err, errno.ErrClipNotFound)
}

func TestQRCodeIsPNGDataURL(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeExecutor{})
	resp, err := h.app.CreateClip(ctx, "u1", "tok", &cqe.CreateClipReq{RatingKey: "42", StartMs: 0, EndMs: 1_000})
	require.NoError(t, err)
	h.app.Wait()

	qr, err := NewShareApp(h.clips, "https://clips.example").QRCode(ctx, "u1", resp.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.ShareURL, qr.ShareURL)
	require.True(t, strings.HasPrefix(qr.QRDataURL, "data:image/png;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(qr.QRDataURL, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(raw[:4]))
}
