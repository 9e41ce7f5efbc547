package app

import (
	"context"
	"encoding/base64"
	"image/color"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"

	"cliparr/ddd/application/dto"
	"cliparr/ddd/domain/entity"
	"cliparr/ddd/domain/repo"
	"cliparr/pkg/errno"
)

// QRSize is the edge length of the generated QR image in pixels.
const QRSize = 400

var (
	qrForeground = color.RGBA{R: 0xe5, G: 0xa0, B: 0x0d, A: 0xff}
	qrBackground = color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff}
)

// ShareApp 分享二维码与平台链接
type ShareApp interface {
	QRCode(ctx context.Context, userID, clipID string) (*dto.QRDTO, error)
	ShareLinks(ctx context.Context, userID, clipID string) (*dto.ShareLinksDTO, error)
}

type shareAppImpl struct {
	clips   repo.ClipRepository
	baseURL string
}

func NewShareApp(clips repo.ClipRepository, baseURL string) ShareApp {
	return &shareAppImpl{clips: clips, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *shareAppImpl) QRCode(ctx context.Context, userID, clipID string) (*dto.QRDTO, error) {
	clip, err := s.owned(ctx, userID, clipID)
	if err != nil {
		return nil, err
	}
	shareURL := dto.ShareURL(s.baseURL, clip.ID(), clip.AccessToken())

	qr, err := qrcode.New(shareURL, qrcode.Medium)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrInternalServer, err)
	}
	qr.ForegroundColor = qrForeground
	qr.BackgroundColor = qrBackground
	png, err := qr.PNG(QRSize)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrInternalServer, err)
	}
	return &dto.QRDTO{
		QRDataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		ShareURL:  shareURL,
	}, nil
}

func (s *shareAppImpl) ShareLinks(ctx context.Context, userID, clipID string) (*dto.ShareLinksDTO, error) {
	clip, err := s.owned(ctx, userID, clipID)
	if err != nil {
		return nil, err
	}
	shareURL := dto.ShareURL(s.baseURL, clip.ID(), clip.AccessToken())
	title := clip.TitleOrEmpty()
	if title == "" {
		title = clip.MediaTitle()
	}
	text := escapeComponent("Check out this clip: " + title)
	u := escapeComponent(shareURL)

	return &dto.ShareLinksDTO{
		URL: shareURL,
		Links: dto.ShareLinks{
			IMessage: "sms:&body=" + text + "%20" + u,
			WhatsApp: "https://wa.me/?text=" + text + "%20" + u,
			Telegram: "https://t.me/share/url?url=" + u + "&text=" + text,
			Twitter:  "https://twitter.com/intent/tweet?text=" + text + "&url=" + u,
			Email:    "mailto:?subject=" + escapeComponent(title) + "&body=" + text + "%20" + u,
		},
	}, nil
}

func (s *shareAppImpl) owned(ctx context.Context, userID, clipID string) (*entity.ClipEntity, error) {
	clip, err := s.clips.GetByOwner(ctx, clipID, userID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	if clip == nil {
		return nil, errno.ErrClipNotFound
	}
	return clip, nil
}

// escapeComponent percent-encodes spaces as %20 rather than '+'.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
