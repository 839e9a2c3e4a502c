package capture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/intervox/intervox/internal/audio"
)

// commandResult is an external command execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		}
	}

	return result, err
}

// WhisperConfig configures the whisper-based local engine.
type WhisperConfig struct {
	// Binary is the whisper CLI executable name or path.
	Binary string
	// ModelPath points to the model file passed to the CLI.
	ModelPath string
	// Language is the recognition language code.
	Language string
}

// WhisperEngine is an Engine implementation that records audio to a
// temporary file and runs a whisper-style CLI on stop. It produces no
// interim results; the single final segment arrives when the turn ends.
type WhisperEngine struct {
	cfg    WhisperConfig
	device audio.Device
	runner commandRunner
	logger *zap.Logger

	mu      sync.Mutex
	events  EngineConfig
	cancel  context.CancelFunc
	path    string
	done    chan struct{}
	active  bool
	aborted bool
}

// NewWhisperEngine creates the engine around an audio device.
func NewWhisperEngine(cfg WhisperConfig, device audio.Device, log *zap.Logger) *WhisperEngine {
	if cfg.Binary == "" {
		cfg.Binary = "whisper-cli"
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &WhisperEngine{
		cfg:    cfg,
		device: device,
		runner: &execRunner{},
		logger: log,
	}
}

// Supported reports whether the CLI binary and a device are available.
func (e *WhisperEngine) Supported() bool {
	if e.device == nil {
		return false
	}
	_, err := exec.LookPath(e.cfg.Binary)
	return err == nil
}

// Start acquires the device and spools audio to a temporary file.
func (e *WhisperEngine) Start(cfg EngineConfig) error {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return fmt.Errorf("engine already started")
	}

	file, err := os.CreateTemp("", "intervox-turn-*.wav")
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("creating turn recording: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	frames, err := e.device.Start(ctx)
	if err != nil {
		cancel()
		file.Close()
		os.Remove(file.Name())
		e.mu.Unlock()
		return fmt.Errorf("acquiring audio device: %w", err)
	}

	done := make(chan struct{})
	e.events = cfg
	e.cancel = cancel
	e.path = file.Name()
	e.done = done
	e.active = true
	e.aborted = false
	e.mu.Unlock()

	go func() {
		defer close(done)
		defer file.Close()

		for chunk := range frames {
			if _, err := file.Write(chunk); err != nil {
				e.logger.Warn("turn recording write failed", zap.Error(err))
				return
			}
		}
	}()

	return nil
}

// Stop releases the device, transcribes the recording and reports the
// single final result followed by the end event.
func (e *WhisperEngine) Stop() {
	events, path, ok := e.finish()
	if !ok {
		return
	}
	defer os.Remove(path)

	result, err := e.runner.Run(context.Background(), e.cfg.Binary, e.args(path)...)
	if err != nil {
		e.logger.Warn("whisper transcription failed",
			zap.Int("exit_code", result.ExitCode),
			zap.String("stderr", result.Stderr),
		)
		if events.OnError != nil {
			events.OnError(fmt.Sprintf("audio-capture: %v", err))
		}
		if events.OnEnd != nil {
			events.OnEnd()
		}
		return
	}

	text := strings.TrimSpace(result.Stdout)
	if text != "" && events.OnResult != nil {
		events.OnResult([]ResultSegment{{Text: text, Final: true}})
	}
	if events.OnEnd != nil {
		events.OnEnd()
	}
}

// Abort discards the recording without transcribing it.
func (e *WhisperEngine) Abort() {
	events, path, ok := e.finish()
	if !ok {
		return
	}
	os.Remove(path)

	if events.OnEnd != nil {
		events.OnEnd()
	}
}

// finish stops capture and hands back the run's handlers and recording.
func (e *WhisperEngine) finish() (EngineConfig, string, bool) {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return EngineConfig{}, "", false
	}
	e.active = false
	events := e.events
	cancel := e.cancel
	path := e.path
	done := e.done
	e.mu.Unlock()

	cancel()
	_ = e.device.Stop()
	<-done

	return events, path, true
}

func (e *WhisperEngine) args(path string) []string {
	args := []string{"-m", e.cfg.ModelPath, "-f", path, "--no-timestamps"}
	if e.cfg.Language != "" {
		args = append(args, "-l", e.cfg.Language)
	}
	return args
}
