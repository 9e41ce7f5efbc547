package executor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerReportsExitCodeAndTail(t *testing.T) {
	r := NewExecRunner("sh")
	res, err := r.Run(context.Background(), []string{"-c", "echo oops >&2; exit 3"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "oops\n", res.StderrTail)
}

func TestExecRunnerKeepsOnlyTheTail(t *testing.T) {
	r := NewExecRunner("sh")
	res, err := r.Run(context.Background(), []string{"-c", "i=0; while [ $i -lt 300 ]; do printf 'abcdefghij' >&2; i=$((i+1)); done; exit 1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.Len(t, res.StderrTail, StderrTailChars)
	assert.True(t, strings.HasSuffix(res.StderrTail, "abcdefghij"))
}

func TestExecRunnerMissingBinary(t *testing.T) {
	r := NewExecRunner("/nonexistent/ffmpeg-binary")
	res, err := r.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
}

func TestExecRunnerKillsOnDeadline(t *testing.T) {
	r := NewExecRunner("sh")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, []string{"-c", "sleep 5"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestTailBufferWrap(t *testing.T) {
	b := newTailBuffer(4)
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defg"))
	assert.Equal(t, "defg", b.String())
}
