package port

import (
	"context"
	"fmt"
)

// ProcessResult is what a finished external process leaves behind.
type ProcessResult struct {
	ExitCode   int
	StderrTail string
}

// ProcessRunner runs the encoder binary with the given arguments.
// A process that cannot be started returns a non-nil error with ExitCode -1.
type ProcessRunner interface {
	Run(ctx context.Context, args []string) (ProcessResult, error)
}

// TranscodeResult paths are relative to the clips root.
type TranscodeResult struct {
	HLSPath       string
	ThumbnailPath string
}

// TranscodeExecutor renders one clip into outputDir.
type TranscodeExecutor interface {
	Execute(ctx context.Context, filePath string, startMs, endMs int64, outputDir string) (TranscodeResult, error)
}

// Encode steps.
const (
	StepThumbnail = "thumbnail"
	StepHLS       = "hls"
)

// EncodeError reports a failed encoder invocation.
type EncodeError struct {
	Step       string
	ExitCode   int
	StderrTail string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("ffmpeg %s exited with code %d: %s", e.Step, e.ExitCode, e.StderrTail)
}
