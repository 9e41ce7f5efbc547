package executor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cliparr/ddd/domain/port"
	"cliparr/ddd/infrastructure/storage"
	"cliparr/pkg/config"
)

type fakeRunner struct {
	calls   [][]string
	results []port.ProcessResult
	errs    []error
}

func (f *fakeRunner) Run(_ context.Context, args []string) (port.ProcessResult, error) {
	i := len(f.calls)
	f.calls = append(f.calls, args)
	var res port.ProcessResult
	var err error
	if i < len(f.results) {
		res = f.results[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return res, err
}

type fakeMirror struct {
	dir, local string
	err        error
}

func (m *fakeMirror) Publish(_ context.Context, dir, localDir string) error {
	m.dir, m.local = dir, localDir
	return m.err
}

func (m *fakeMirror) Remove(context.Context, string) (int64, error) { return 0, nil }

func indexOf(args []string, flag string) int {
	for i, a := range args {
		if a == flag {
			return i
		}
	}
	return -1
}

func valueOf(t *testing.T, args []string, flag string) string {
	t.Helper()
	i := indexOf(args, flag)
	require.GreaterOrEqual(t, i, 0, "flag %s missing", flag)
	require.Less(t, i+1, len(args))
	return args[i+1]
}

func TestExecuteRunsThumbnailThenHLS(t *testing.T) {
	out := filepath.Join(t.TempDir(), "clip123")
	runner := &fakeRunner{}
	exec := NewFFmpegExecutor(runner, config.FFmpegConfig{HardwareAccel: "none"})

	res, err := exec.Execute(context.Background(), "/media/movie.mkv", 10_000, 40_000, out)
	require.NoError(t, err)
	assert.Equal(t, "clip123", res.HLSPath)
	assert.Equal(t, "clip123/thumb.jpg", res.ThumbnailPath)
	assert.DirExists(t, out)

	require.Len(t, runner.calls, 2)
	thumb := runner.calls[0]
	assert.Equal(t, "25.000", valueOf(t, thumb, "-ss"))
	assert.Equal(t, "1", valueOf(t, thumb, "-vframes"))
	assert.Equal(t, "scale=640:-2", valueOf(t, thumb, "-vf"))
	assert.Equal(t, filepath.Join(out, "thumb.jpg"), thumb[len(thumb)-1])

	hls := runner.calls[1]
	assert.Equal(t, "10.000", valueOf(t, hls, "-ss"))
	assert.Equal(t, "30.000", valueOf(t, hls, "-t"))
	assert.Equal(t, "/media/movie.mkv", valueOf(t, hls, "-i"))
	assert.Equal(t, -1, indexOf(hls, "-hwaccel"))
	assert.Equal(t, "5000k", valueOf(t, hls, "-b:v:0"))
	assert.Equal(t, "5500k", valueOf(t, hls, "-maxrate:v:0"))
	assert.Equal(t, "10000k", valueOf(t, hls, "-bufsize:v:0"))
	assert.Equal(t, "scale=-2:1080", valueOf(t, hls, "-vf:0"))
	assert.Equal(t, "2500k", valueOf(t, hls, "-b:v:1"))
	assert.Equal(t, "scale=-2:720", valueOf(t, hls, "-vf:1"))
	assert.Equal(t, "1000k", valueOf(t, hls, "-b:v:2"))
	assert.Equal(t, "2000k", valueOf(t, hls, "-bufsize:v:2"))
	assert.Equal(t, "scale=-2:480", valueOf(t, hls, "-vf:2"))
	assert.Equal(t, "libx264", valueOf(t, hls, "-c:v:1"))
	assert.Equal(t, "ultrafast", valueOf(t, hls, "-preset"))
	assert.Equal(t, "128k", valueOf(t, hls, "-b:a"))
	assert.Equal(t, "2", valueOf(t, hls, "-hls_time"))
	assert.Equal(t, "48", valueOf(t, hls, "-g"))
	assert.Equal(t, "master.m3u8", valueOf(t, hls, "-master_pl_name"))
	assert.Equal(t, "v:0,a:0 v:1,a:1 v:2,a:2", valueOf(t, hls, "-var_stream_map"))
	assert.Equal(t, filepath.Join(out, "v%v", "seg%d.ts"), valueOf(t, hls, "-hls_segment_filename"))
	assert.Equal(t, filepath.Join(out, "v%v", "playlist.m3u8"), hls[len(hls)-1])
	assert.Equal(t, 3, strings.Count(strings.Join(hls, " "), "-map 0:v:0 -map 0:a:0"))
}

func TestHardwareHintsOnlyChangeInputFlags(t *testing.T) {
	cases := map[string][]string{
		"vaapi": {"-hwaccel", "vaapi", "-hwaccel_output_format", "vaapi", "-vaapi_device", "/dev/dri/renderD128"},
		"nvenc": {"-hwaccel", "cuda", "-hwaccel_output_format", "cuda"},
		"qsv":   {"-hwaccel", "qsv", "-hwaccel_output_format", "qsv"},
		"auto":  nil,
		"bogus": nil,
	}
	base := NewFFmpegExecutor(&fakeRunner{}, config.FFmpegConfig{HardwareAccel: "none"}).HLSArgs("in.mkv", 0, 1000, "/out")
	for hint, flags := range cases {
		t.Run(hint, func(t *testing.T) {
			args := NewFFmpegExecutor(&fakeRunner{}, config.FFmpegConfig{HardwareAccel: hint}).HLSArgs("in.mkv", 0, 1000, "/out")
			// -ss x -t y -i z is six tokens
			assert.Equal(t, flags, nilIfEmpty(args[6:6+len(flags)]))
			assert.Equal(t, base[6:], args[6+len(flags):])
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestExecuteStopsOnThumbnailFailure(t *testing.T) {
	runner := &fakeRunner{results: []port.ProcessResult{{ExitCode: 1, StderrTail: "No such file"}}}
	exec := NewFFmpegExecutor(runner, config.FFmpegConfig{})

	_, err := exec.Execute(context.Background(), "/missing.mkv", 0, 1000, filepath.Join(t.TempDir(), "c"))
	var encErr *port.EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, port.StepThumbnail, encErr.Step)
	assert.Equal(t, 1, encErr.ExitCode)
	assert.Equal(t, "No such file", encErr.StderrTail)
	assert.Len(t, runner.calls, 1)
}

func TestExecuteReportsSpawnFailure(t *testing.T) {
	runner := &fakeRunner{
		results: []port.ProcessResult{{}, {ExitCode: -1}},
		errs:    []error{nil, errors.New("exec: \"ffmpeg\": executable file not found")},
	}
	exec := NewFFmpegExecutor(runner, config.FFmpegConfig{})

	_, err := exec.Execute(context.Background(), "in.mkv", 0, 1000, filepath.Join(t.TempDir(), "c"))
	var encErr *port.EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, port.StepHLS, encErr.Step)
	assert.Equal(t, -1, encErr.ExitCode)
}

func TestExecutePublishesThroughStore(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "abc")
	mirror := &fakeMirror{err: errors.New("bucket gone")}
	store := storage.NewMirroredStorage(storage.NewLocalStorage(root), mirror)
	exec := NewFFmpegExecutor(&fakeRunner{}, config.FFmpegConfig{}).WithStore(store)

	// 镜像失败只记日志
	res, err := exec.Execute(context.Background(), "in.mkv", 0, 1000, out)
	require.NoError(t, err)
	assert.Equal(t, "abc", res.HLSPath)
	assert.Equal(t, "abc", mirror.dir)
	assert.Equal(t, out, mirror.local)
}

func TestExecuteFailsWhenPrimaryPublishFails(t *testing.T) {
	primary := &fakeMirror{err: errors.New("disk full")}
	exec := NewFFmpegExecutor(&fakeRunner{}, config.FFmpegConfig{}).WithStore(primary)

	_, err := exec.Execute(context.Background(), "in.mkv", 0, 1000, filepath.Join(t.TempDir(), "abc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
