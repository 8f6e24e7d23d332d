package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/quka-ai/daybook/pkg/safe"
)

// ExecSource captures from local devices through an external program that writes the
// encoded recording to stdout, ffmpeg by default.
type ExecSource struct {
	Command       string
	AudioArgs     []string
	VideoArgs     []string
	AudioMimeType string
	VideoMimeType string
	// ReadSize is the size of a single stdout read.
	ReadSize int
	// StopGrace is how long the program may take to finalize its container after an
	// interrupt before it is killed, 3s by default.
	StopGrace time.Duration
}

// NewFFmpegSource records the default ALSA input and, for video, /dev/video0.
func NewFFmpegSource() *ExecSource {
	return &ExecSource{
		Command: "ffmpeg",
		AudioArgs: []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "alsa", "-i", "default",
			"-c:a", "libopus", "-f", "webm", "pipe:1",
		},
		VideoArgs: []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "v4l2", "-i", "/dev/video0",
			"-f", "alsa", "-i", "default",
			"-c:v", "libx264", "-preset", "veryfast", "-c:a", "aac",
			"-movflags", "frag_keyframe+empty_moov", "-f", "mp4", "pipe:1",
		},
		AudioMimeType: "audio/webm",
		VideoMimeType: "video/mp4",
		ReadSize:      32 * 1024,
	}
}

func (s *ExecSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	args, mimeType := s.AudioArgs, s.AudioMimeType
	if c.Video {
		args, mimeType = s.VideoArgs, s.VideoMimeType
	}
	readSize := s.ReadSize
	if readSize <= 0 {
		readSize = 32 * 1024
	}

	// the process outlives Open, it is bound to the stream and ended by Stop
	cmd := exec.Command(s.Command, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr := &strings.Builder{}
	cmd.Stderr = stderr

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", s.Command, err)
	}

	grace := s.StopGrace
	if grace <= 0 {
		grace = 3 * time.Second
	}

	var (
		data     = make(chan []byte, 8)
		stopping = make(chan struct{})
		exited   = make(chan struct{})
		killed   = make(chan struct{})
		once     sync.Once
		stream   *chanStream
	)

	kill := func() {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			slog.Warn("failed to kill capture process", slog.String("error", err.Error()))
		}
	}

	// 先发送中断让 ffmpeg 写完容器尾部，超时后强制结束
	stream = newChanStream(mimeType, data, func() error {
		once.Do(func() {
			close(stopping)
			if err := cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
				close(killed)
				kill()
				return
			}
			// 进程已退出时也要等待，超时后释放阻塞在发送上的读取协程
			safe.Go("capture.ExecSource.grace", func() {
				timer := time.NewTimer(grace)
				defer timer.Stop()
				select {
				case <-exited:
				case <-timer.C:
					slog.Warn("capture process ignored interrupt, killing it", slog.String("command", s.Command))
					close(killed)
					kill()
				}
			}, nil)
		})
		return nil
	})

	safe.Go("capture.ExecSource", func() {
		defer close(data)
		defer close(exited)
		for {
			buf := make([]byte, readSize)
			n, err := stdout.Read(buf)
			if n > 0 {
				select {
				case data <- buf[:n]:
				case <-killed:
					// nobody drains after a kill
					_ = cmd.Wait()
					return
				}
			}
			if err != nil {
				waitErr := cmd.Wait()
				select {
				case <-stopping:
					// ended by Stop, the exit status of an interrupted program is not a device failure
				default:
					if waitErr != nil {
						stream.fail(fmt.Errorf("%s exited: %w: %s", s.Command, waitErr, strings.TrimSpace(stderr.String())))
					}
				}
				return
			}
		}
	}, stream.fail)

	return stream, nil
}
