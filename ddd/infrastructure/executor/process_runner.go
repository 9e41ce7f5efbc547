package executor

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"

	"cliparr/ddd/domain/port"
	"cliparr/pkg/logger"
)

// StderrTailChars is how much encoder stderr survives into errors and the clip record.
const StderrTailChars = 500

// ExecRunner runs a local binary and keeps the tail of its stderr.
type ExecRunner struct {
	binary string
}

// NewExecRunner 创建本地进程执行器
func NewExecRunner(binary string) *ExecRunner {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &ExecRunner{binary: binary}
}

// Run implements port.ProcessRunner. A non-zero exit is reported through ExitCode, not err.
// err is set when the process could not start or ctx ended first; the process is killed in that case.
func (r *ExecRunner) Run(ctx context.Context, args []string) (port.ProcessResult, error) {
	tail := newTailBuffer(4096)
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stdout = nil
	cmd.Stderr = tail
	cmd.WaitDelay = 5 * time.Second

	logger.Debugf("exec %s %s", r.binary, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return port.ProcessResult{ExitCode: -1, StderrTail: err.Error()}, err
	}

	err := cmd.Wait()
	res := port.ProcessResult{ExitCode: -1, StderrTail: lastChars(tail.String(), StderrTailChars)}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, err
		}
	}
	return res, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max, buf: make([]byte, 0, max)}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

func lastChars(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
