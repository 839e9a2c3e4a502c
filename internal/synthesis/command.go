package synthesis

import (
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// CommandEngine synthesizes speech by invoking an external program
// (espeak-ng by default) once per utterance.
type CommandEngine struct {
	binary string
	voices []Voice
	logger *zap.Logger

	run func(ctx context.Context, name string, args ...string) error
}

// NewCommandEngine creates the engine. An empty binary selects espeak-ng;
// an empty voice list installs a small default English roster.
func NewCommandEngine(binary string, voices []Voice, logger *zap.Logger) *CommandEngine {
	if binary == "" {
		binary = "espeak-ng"
	}
	if len(voices) == 0 {
		voices = []Voice{
			{Name: "en+f3", Gender: "female", Language: "en-US", Preferred: true},
			{Name: "en+m3", Gender: "male", Language: "en-US", Preferred: true},
			{Name: "en", Gender: "neutral", Language: "en"},
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CommandEngine{
		binary: binary,
		voices: voices,
		logger: logger,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Voices lists the configured voices.
func (e *CommandEngine) Voices() []Voice {
	out := make([]Voice, len(e.voices))
	copy(out, e.voices)
	return out
}

// Speak plays the text, blocking until the process exits.
func (e *CommandEngine) Speak(ctx context.Context, voice Voice, text string) error {
	args := []string{}
	if voice.Name != "" {
		args = append(args, "-v", voice.Name)
	}
	args = append(args, text)

	e.logger.Debug("speaking", zap.String("voice", voice.Name), zap.Int("chars", len(text)))

	if err := e.run(ctx, e.binary, args...); err != nil {
		return fmt.Errorf("%s: %w", e.binary, err)
	}
	return nil
}
