// Package audio captures microphone PCM through an ffmpeg subprocess.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"univox/internal/ports"
)

// frameDuration is the wall-clock length of one capture frame. Reads are
// aligned to whole frames so every chunk handed to a transport carries
// the same amount of audio; the RTP sample path derives packet timing
// from chunk length.
const frameDuration = 20 * time.Millisecond

const defaultStartupProbe = 250 * time.Millisecond

// frameBytes returns the size of one frame of little-endian 16-bit PCM.
func frameBytes(sampleRate, channels int) int {
	samples := sampleRate * int(frameDuration/time.Millisecond) / 1000
	return samples * channels * 2
}

// FFMPEGCapture streams microphone audio as s16le PCM read from an
// ffmpeg subprocess's stdout. Capture pacing follows the device in real
// time; the session slices the stream into fixed-duration frames.
type FFMPEGCapture struct {
	command string

	// startupProbe is how long the encoder must survive before the
	// session is handed out. Fast exits surface device and permission
	// errors at Start instead of as a truncated first read.
	startupProbe time.Duration
}

func NewFFMPEGCapture(command string) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGCapture{command: command, startupProbe: defaultStartupProbe}
}

func captureArgs(cfg ports.AudioConfig) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 8000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}

	cmd := exec.CommandContext(ctx, c.command, captureArgs(cfg)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	probe := c.startupProbe
	if probe <= 0 {
		probe = defaultStartupProbe
	}
	select {
	case err := <-waitErr:
		if detail := trimmedStderr(&stderr); detail != "" {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %s", detail)
		}
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w", err)
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(probe):
	}

	return &ffmpegSession{
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
		frame:   frameBytes(cfg.SampleRate, cfg.Channels),
	}, nil
}

type ffmpegSession struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error
	frame   int

	stopOnce sync.Once
	stopErr  error
}

// Read fills p with at most one frame of PCM. A full frame is assembled
// even when the pipe delivers it in pieces; the stream tail may come up
// short, in which case whatever remains is returned with io.EOF.
func (s *ffmpegSession) Read(p []byte) (int, error) {
	want := s.frame
	if want <= 0 || want > len(p) {
		want = len(p)
	}

	n, err := io.ReadFull(s.stdout, p[:want])
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return n, io.EOF
	}
	return n, err
}

func (s *ffmpegSession) Close() error {
	return s.Stop()
}

// Stop interrupts the encoder and waits for it to exit, escalating to a
// kill if it lingers. An interrupt-induced exit status is not an error.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = ignoreExitStatus(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.waitErr; ok {
				s.stopErr = ignoreExitStatus(err)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = closeErr
		}

		if s.stopErr != nil {
			if detail := trimmedStderr(s.stderr); detail != "" {
				s.stopErr = fmt.Errorf("%w: %s", s.stopErr, detail)
			}
		}
	})

	return s.stopErr
}

func ignoreExitStatus(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimmedStderr(buf *bytes.Buffer) string {
	if buf == nil {
		return ""
	}
	return string(bytes.TrimSpace(buf.Bytes()))
}
