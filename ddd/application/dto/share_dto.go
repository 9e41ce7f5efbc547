package dto

// QRDTO 二维码
type QRDTO struct {
	QRDataURL string `json:"qrDataUrl"`
	ShareURL  string `json:"shareUrl"`
}

// ShareLinks per-platform intent links.
type ShareLinks struct {
	IMessage string `json:"imessage"`
	WhatsApp string `json:"whatsapp"`
	Telegram string `json:"telegram"`
	Twitter  string `json:"twitter"`
	Email    string `json:"email"`
}

// ShareLinksDTO 分享链接
type ShareLinksDTO struct {
	URL   string     `json:"url"`
	Links ShareLinks `json:"links"`
}

// ClipPageData is embedded into the public player page.
type ClipPageData struct {
	ClipID       string  `json:"clipId"`
	Title        *string `json:"title"`
	MediaTitle   *string `json:"mediaTitle"`
	DurationMs   *int64  `json:"durationMs"`
	IsExpired    bool    `json:"isExpired"`
	IsValid      bool    `json:"isValid"`
	StreamURL    *string `json:"streamUrl"`
	ThumbnailURL *string `json:"thumbnailUrl"`
}
