package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"cliparr/ddd/domain/port"
	"cliparr/ddd/domain/vo"
	"cliparr/pkg/config"
	"cliparr/pkg/logger"
)

// FFmpegExecutor implements port.TranscodeExecutor with two encoder runs: a thumbnail and the HLS ladder.
type FFmpegExecutor struct {
	runner  port.ProcessRunner
	hwaccel vo.HardwareAccel
	codec   string
	preset  string
	store   port.ArtifactStore
}

// NewFFmpegExecutor 创建 FFmpeg 执行器
func NewFFmpegExecutor(runner port.ProcessRunner, cfg config.FFmpegConfig) *FFmpegExecutor {
	codec := cfg.VideoCodec
	if codec == "" {
		codec = "libx264"
	}
	preset := cfg.VideoPreset
	if preset == "" {
		preset = "ultrafast"
	}
	return &FFmpegExecutor{
		runner:  runner,
		hwaccel: vo.HardwareAccel(cfg.HardwareAccel),
		codec:   codec,
		preset:  preset,
	}
}

// WithStore publishes finished artifacts through store under the clip id.
func (e *FFmpegExecutor) WithStore(store port.ArtifactStore) *FFmpegExecutor {
	e.store = store
	return e
}

// Execute implements port.TranscodeExecutor.
func (e *FFmpegExecutor) Execute(ctx context.Context, filePath string, startMs, endMs int64, outputDir string) (port.TranscodeResult, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return port.TranscodeResult{}, fmt.Errorf("create output dir: %w", err)
	}
	clipID := filepath.Base(filepath.Clean(outputDir))

	if err := e.run(ctx, port.StepThumbnail, ThumbnailArgs(filePath, startMs, endMs, outputDir)); err != nil {
		return port.TranscodeResult{}, err
	}
	if err := e.run(ctx, port.StepHLS, e.HLSArgs(filePath, startMs, endMs, outputDir)); err != nil {
		return port.TranscodeResult{}, err
	}

	if e.store != nil {
		if err := e.store.Publish(ctx, clipID, outputDir); err != nil {
			logger.Warnf("Artifact publish failed clip_id=%s error=%v", clipID, err)
			return port.TranscodeResult{}, fmt.Errorf("publish artifacts: %w", err)
		}
	}

	return port.TranscodeResult{
		HLSPath:       clipID,
		ThumbnailPath: clipID + "/" + vo.ThumbnailFile,
	}, nil
}

func (e *FFmpegExecutor) run(ctx context.Context, step string, args []string) error {
	res, err := e.runner.Run(ctx, args)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg %s interrupted: %w", step, err)
		}
		return &port.EncodeError{Step: step, ExitCode: -1, StderrTail: err.Error()}
	}
	if res.ExitCode != 0 {
		return &port.EncodeError{Step: step, ExitCode: res.ExitCode, StderrTail: res.StderrTail}
	}
	return nil
}

// ThumbnailArgs grabs one 640px-wide frame at the clip midpoint.
func ThumbnailArgs(filePath string, startMs, endMs int64, outputDir string) []string {
	mid := float64(startMs) + float64(endMs-startMs)/2
	return []string{
		"-ss", seconds(mid),
		"-i", filePath,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", vo.ThumbnailWidth),
		"-y",
		filepath.Join(outputDir, vo.ThumbnailFile),
	}
}

// HLSArgs builds the three-rendition HLS package command.
func (e *FFmpegExecutor) HLSArgs(filePath string, startMs, endMs int64, outputDir string) []string {
	args := []string{
		"-ss", seconds(float64(startMs)),
		"-t", seconds(float64(endMs - startMs)),
		"-i", filePath,
	}
	args = append(args, e.hwaccel.DecodeFlags()...)

	streamMap := ""
	for i, r := range vo.DefaultLadder {
		n := strconv.Itoa(i)
		args = append(args,
			"-map", "0:v:0", "-map", "0:a:0",
			"-c:v:"+n, e.codec, "-preset", e.preset,
			"-b:v:"+n, r.Bitrate, "-maxrate:v:"+n, r.MaxRate, "-bufsize:v:"+n, r.BufSize,
			"-vf:"+n, fmt.Sprintf("scale=-2:%d", r.Height),
		)
		if i > 0 {
			streamMap += " "
		}
		streamMap += fmt.Sprintf("v:%d,a:%d", i, i)
	}

	gop := strconv.Itoa(vo.HLSGOPSize)
	args = append(args,
		"-c:a", "aac", "-b:a", vo.AudioBitrate, "-ac", strconv.Itoa(vo.AudioChannels),
		"-f", "hls",
		"-hls_time", strconv.Itoa(vo.HLSSegmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_type", "mpegts",
		"-g", gop, "-keyint_min", gop, "-sc_threshold", "0",
		"-master_pl_name", vo.HLSMasterPlaylist,
		"-var_stream_map", streamMap,
		"-hls_segment_filename", filepath.Join(outputDir, "v%v", "seg%d.ts"),
		filepath.Join(outputDir, "v%v", "playlist.m3u8"),
	)
	return args
}

func seconds(ms float64) string {
	return strconv.FormatFloat(ms/1000, 'f', 3, 64)
}

var _ port.TranscodeExecutor = (*FFmpegExecutor)(nil)
