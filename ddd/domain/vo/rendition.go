package vo

// Rendition 单个码率档位
type Rendition struct {
	Name    string
	Height  int
	Bitrate string
	MaxRate string
	BufSize string
}

// DefaultLadder is the fixed three-rung ladder every clip is encoded into.
var DefaultLadder = []Rendition{
	{Name: "1080p", Height: 1080, Bitrate: "5000k", MaxRate: "5500k", BufSize: "10000k"},
	{Name: "720p", Height: 720, Bitrate: "2500k", MaxRate: "2750k", BufSize: "5000k"},
	{Name: "480p", Height: 480, Bitrate: "1000k", MaxRate: "1100k", BufSize: "2000k"},
}

// HLS packaging constants.
const (
	HLSSegmentSeconds = 2
	HLSGOPSize        = 48
	HLSMasterPlaylist = "master.m3u8"
	ThumbnailFile     = "thumb.jpg"
	ThumbnailWidth    = 640
	AudioBitrate      = "128k"
	AudioChannels     = 2
)

// HardwareAccel 硬件加速提示
type HardwareAccel string

const (
	HardwareAccelNone  HardwareAccel = "none"
	HardwareAccelAuto  HardwareAccel = "auto"
	HardwareAccelVAAPI HardwareAccel = "vaapi"
	HardwareAccelNVENC HardwareAccel = "nvenc"
	HardwareAccelQSV   HardwareAccel = "qsv"
)

// DecodeFlags returns the ffmpeg input flags for the hint. Unknown hints add nothing.
func (h HardwareAccel) DecodeFlags() []string {
	switch h {
	case HardwareAccelVAAPI:
		return []string{"-hwaccel", "vaapi", "-hwaccel_output_format", "vaapi", "-vaapi_device", "/dev/dri/renderD128"}
	case HardwareAccelNVENC:
		return []string{"-hwaccel", "cuda", "-hwaccel_output_format", "cuda"}
	case HardwareAccelQSV:
		return []string{"-hwaccel", "qsv", "-hwaccel_output_format", "qsv"}
	default:
		return nil
	}
}
