package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/intervox/intervox/internal/audio"
	"github.com/intervox/intervox/internal/capture"
	"github.com/intervox/intervox/internal/dialogue"
	"github.com/intervox/intervox/internal/interview"
	"github.com/intervox/intervox/internal/logger"
	"github.com/intervox/intervox/internal/questions"
	"github.com/intervox/intervox/internal/report"
	"github.com/intervox/intervox/internal/synthesis"
	"github.com/intervox/intervox/internal/transcript"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptSubmit = "Submit answer"
	PromptRetry  = "Retry capture"
	PromptLeave  = "Leave interview"

	eventBusCapacity = 256
)

var prompt = promptui.Select{
	Label: "Answer when ready",
	Items: []string{PromptSubmit, PromptRetry, PromptLeave},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive interview session",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("interviewer", "i", "", "interviewer profile name, skips the selection prompt")
	runCmd.Flags().Bool("no-assess", false, "skip the AI assessment after the interview")

	viper.BindPFlag("interviewer", runCmd.Flags().Lookup("interviewer"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	zlog.Info("starting the intervox", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	zlog.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	profile, err := selectProfile(config)
	if err != nil {
		zlog.Fatal("selecting an interviewer profile", zap.Error(err))
	}

	bank, err := loadQuestions(config)
	if err != nil {
		zlog.Fatal("loading the question bank", zap.Error(err))
	}

	session := interview.NewSession(*profile, bank)
	sessionLogger := logger.WithFields(zlog, logger.StringFields(
		logger.StringField{Key: logger.FieldSession, Value: session.ID},
	)...)

	timeline := transcript.New()
	bus := dialogue.NewEventBus(eventBusCapacity)

	synthCommand := ""
	if config.Synthesis != nil {
		synthCommand = config.Synthesis.Command
	}
	engine := synthesis.NewCommandEngine(synthCommand, nil, sessionLogger)
	speaker := synthesis.NewSpeaker(engine, sessionLogger)

	factory, err := newRecognizerFactory(config, sessionLogger)
	if err != nil {
		zlog.Fatal("configuring the capture backend", zap.Error(err))
	}

	controller := dialogue.New(dialogue.Config{
		SessionID:     session.ID,
		Profile:       *profile,
		Questions:     session.Questions,
		Timeline:      timeline,
		Speaker:       speaker,
		Bus:           bus,
		Logger:        sessionLogger,
		Language:      config.Language,
		NewRecognizer: factory,
	})

	events, cancelSub := bus.Subscribe()
	go printEvents(events)
	defer cancelSub()

	zlog.Info("starting the interview",
		zap.String("interviewer", profile.Name),
		zap.Int("questions", len(session.Questions)),
	)

	if err := controller.Start(ctx); err != nil {
		zlog.Fatal("starting the session", zap.Error(err))
	}

	actions := make(chan string)
	go func() {
		for {
			_, action, err := prompt.Run()
			if err != nil {
				actions <- PromptLeave
				return
			}
			actions <- action
		}
	}()

loop:
	for {
		select {
		case <-controller.Done():
			break loop
		case action := <-actions:
			switch action {
			case PromptSubmit:
				controller.Submit()
			case PromptRetry:
				if err := controller.RetryCapture(); err != nil {
					sessionLogger.Warn("retrying capture", zap.Error(err))
				}
			case PromptLeave:
				controller.Leave()
			}
		}
	}

	session.Questions = controller.Questions()
	session.Finish(timeline)

	rep := &report.Report{Session: *session}

	if shouldAssess(cmd, config) {
		result, err := scoreSession(ctx, config, session, sessionLogger)
		if err != nil {
			sessionLogger.Warn("skipping assessment", zap.Error(err))
		} else {
			rep.Assessment = result
			zlog.Info("assessment complete",
				zap.Int("overall_score", result.OverallScore),
				zap.String("readiness", string(result.ReadinessLevel)),
			)
		}
	}

	writeReport(config, rep, zlog)
}

func shouldAssess(cmd *cobra.Command, config *Config) bool {
	if flag := cmd.Flag("no-assess"); flag != nil && strings.EqualFold(flag.Value.String(), "true") {
		return false
	}
	return config.AI == nil || config.AI.Enabled
}

func selectProfile(config *Config) (*interview.Profile, error) {
	profiles := interview.DefaultProfiles()
	if config.ProfilesFile != "" {
		var err error
		profiles, err = interview.LoadProfiles(config.ProfilesFile)
		if err != nil {
			return nil, err
		}
	}

	if name := strings.TrimSpace(viper.GetString("interviewer")); name != "" {
		profile := interview.FindProfile(profiles, name)
		if profile == nil {
			return nil, fmt.Errorf("no interviewer profile named %q", name)
		}
		return profile, nil
	}

	items := make([]string, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, fmt.Sprintf("%s — %s", p.Name, p.Title))
	}

	profilePrompt := promptui.Select{
		Label: "Choose your interviewer",
		Items: items,
	}

	idx, _, err := profilePrompt.Run()
	if err != nil {
		return nil, err
	}

	return &profiles[idx], nil
}

func loadQuestions(config *Config) ([]interview.Question, error) {
	if config.QuestionsFile != "" {
		return questions.Load(config.QuestionsFile)
	}
	return questions.Default(), nil
}

// newRecognizerFactory builds the capture backend selected in the config.
// Both backends record through the same external-process audio device.
func newRecognizerFactory(config *Config, log *zap.Logger) (func(capture.Callbacks) capture.Recognizer, error) {
	captureCfg := config.Capture
	if captureCfg == nil {
		captureCfg = &CaptureConfig{}
	}

	backend := strings.TrimSpace(strings.ToLower(captureCfg.Backend))
	switch backend {
	case "", "local":
		whisper := captureCfg.Whisper
		if whisper == nil {
			whisper = &WhisperConfig{}
		}
		return func(cb capture.Callbacks) capture.Recognizer {
			device := audio.NewRecorder("", nil, log)
			engine := capture.NewWhisperEngine(capture.WhisperConfig{
				Binary:    whisper.Binary,
				ModelPath: whisper.ModelFile,
				Language:  config.Language,
			}, device, log)
			return capture.NewLocal(engine, capture.LocalConfig{Language: config.Language}, cb, log)
		}, nil
	case "stream":
		stream := captureCfg.Stream
		if stream == nil || strings.TrimSpace(stream.URL) == "" {
			return nil, fmt.Errorf("capture.stream.url is required for the stream backend")
		}
		return func(cb capture.Callbacks) capture.Recognizer {
			device := audio.NewRecorder("", nil, log)
			return capture.NewStream(capture.StreamConfig{
				URL:      stream.URL,
				Language: config.Language,
				Model:    stream.Model,
			}, device, cb, log)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported capture backend: %s", captureCfg.Backend)
	}
}

func printEvents(events <-chan dialogue.Event) {
	for event := range events {
		switch event.Type {
		case dialogue.EventTypeQuestion:
			fmt.Printf("\nInterviewer: %s\n", event.Text)
		case dialogue.EventTypeAnswer:
			fmt.Printf("You: %s\n", event.Text)
		case dialogue.EventTypePreview:
			fmt.Printf("  (hearing: %s)\n", logger.TruncateForLog(event.Text, 80))
		case dialogue.EventTypeError:
			fmt.Printf("! capture problem: %s\n", event.Message)
		}
	}
}

func writeReport(config *Config, rep *report.Report, log *zap.Logger) {
	writer, err := report.NewWriter(config.OutputDir)
	if err != nil {
		log.Fatal("preparing the report directory", zap.Error(err))
	}

	jsonPath, err := writer.WriteJSON(rep)
	if err != nil {
		log.Fatal("writing the report", zap.Error(err))
	}

	mdPath, err := writer.WriteMarkdown(rep)
	if err != nil {
		log.Fatal("writing the markdown report", zap.Error(err))
	}

	log.Info("interview saved",
		zap.String("report", jsonPath),
		zap.String("summary", mdPath),
	)
}
