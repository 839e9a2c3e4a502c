// Package audio owns the microphone. The input device is the only
// exclusive resource in the system: it is acquired by whichever capture
// backend starts listening and must be fully released before another can
// acquire it.
package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// ErrDeviceBusy is returned when the device is already acquired.
var ErrDeviceBusy = errors.New("audio device already acquired")

// Device is an audio input source producing encoded frames.
type Device interface {
	// Start acquires the device and returns a channel of audio chunks.
	// The channel is closed when the device stops.
	Start(ctx context.Context) (<-chan []byte, error)
	// Stop releases the device. Safe to call when not started.
	Stop() error
}

const chunkSize = 4096

// Recorder captures microphone input by running an external recorder
// process (ffmpeg by default) and streaming its stdout.
type Recorder struct {
	command string
	args    []string
	logger  *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewRecorder creates a recorder around the given command line. An empty
// command selects the ffmpeg default for the platform's default input.
func NewRecorder(command string, args []string, logger *zap.Logger) *Recorder {
	if command == "" {
		command = "ffmpeg"
		args = []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "pulse", "-i", "default",
			"-ac", "1", "-ar", "16000",
			"-f", "wav", "-",
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Recorder{command: command, args: args, logger: logger}
}

// Start launches the recorder process and streams its stdout in chunks.
func (r *Recorder) Start(ctx context.Context) (<-chan []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil, ErrDeviceBusy
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, r.command, r.args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("recorder stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("starting recorder %q: %w", r.command, err)
	}

	frames := make(chan []byte)
	done := make(chan struct{})

	r.cancel = cancel
	r.done = done
	r.running = true

	go func() {
		defer close(frames)
		defer close(done)

		reader := bufio.NewReader(stdout)
		buf := make([]byte, chunkSize)
		for {
			n, err := reader.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case frames <- chunk:
				case <-ctx.Done():
					_ = cmd.Wait()
					return
				}
			}
			if err != nil {
				if err != io.EOF && ctx.Err() == nil {
					r.logger.Warn("recorder read failed", zap.Error(err))
				}
				_ = cmd.Wait()
				return
			}
		}
	}()

	r.logger.Debug("audio device acquired", zap.String("command", r.command))

	return frames, nil
}

// Stop terminates the recorder process and waits for the stream to drain.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	done := r.done
	r.running = false
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	cancel()
	<-done

	r.logger.Debug("audio device released")

	return nil
}
