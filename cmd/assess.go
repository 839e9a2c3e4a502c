package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/intervox/intervox/internal/assessment"
	"github.com/intervox/intervox/internal/assessment/gemini"
	"github.com/intervox/intervox/internal/interview"
	"github.com/intervox/intervox/internal/logger"
	"github.com/intervox/intervox/internal/report"
	"github.com/intervox/intervox/internal/secrets"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var assessCmd = &cobra.Command{
	Use:   "assess <report.json>",
	Short: "Score a previously saved interview report",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		assess(args[0])
	},
}

func init() {
	rootCmd.AddCommand(assessCmd)
}

// assess re-runs the scoring stage on a saved report. Useful when the
// original run skipped assessment or the API was unavailable.
func assess(path string) {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	rep, err := report.Load(path)
	if err != nil {
		zlog.Fatal("loading the report", zap.Error(err))
	}

	sessionLogger := logger.WithFields(zlog, logger.StringFields(
		logger.StringField{Key: logger.FieldSession, Value: rep.Session.ID},
	)...)

	result, err := scoreSession(ctx, config, &rep.Session, sessionLogger)
	if err != nil {
		zlog.Fatal("scoring the interview", zap.Error(err))
	}

	rep.Assessment = result

	zlog.Info("assessment complete",
		zap.Int("overall_score", result.OverallScore),
		zap.String("readiness", string(result.ReadinessLevel)),
	)

	writeReport(config, rep, zlog)
}

// scoreSession asks the configured judge to evaluate the session and
// applies the interviewer's persona weighting.
func scoreSession(ctx context.Context, config *Config, session *interview.Session, log *zap.Logger) (*assessment.Result, error) {
	if len(session.Transcript) == 0 {
		return nil, errors.New("transcript is empty, nothing to assess")
	}

	aiConfig := config.AI
	if aiConfig == nil {
		aiConfig = &AIConfig{}
	}

	judge, err := newJudge(ctx, aiConfig, log)
	if err != nil {
		return nil, err
	}

	// Score only the questions that were actually voiced; after an early
	// leave the rest of the bank says nothing about the candidate.
	pairs := assessment.AskedPairs(session.Questions, session.Transcript)

	raw, err := judge.Assess(ctx, assessment.Request{
		Profile:    session.Profile,
		Transcript: session.Transcript,
		Pairs:      pairs,
	})
	if err != nil {
		return nil, err
	}

	persona := assessment.PersonaFor(session.Profile.Title, session.Profile.Expertise)
	log.Debug("applying persona weights", zap.String("persona", string(persona)))

	return assessment.Finalize(persona, raw, assessment.Answers(pairs)), nil
}

func newJudge(ctx context.Context, cfg *AIConfig, log *zap.Logger) (assessment.Judge, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	geminiCfg := cfg.Gemini
	if geminiCfg == nil {
		geminiCfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: geminiCfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	aiLogger := logger.WithProvider(log, "gemini", geminiCfg.Model)

	generator, err := gemini.NewGenerator(ctx, apiKey, geminiCfg.Model, geminiCfg.MaxRetries, aiLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewJudge(generator, aiLogger, geminiCfg.MaxLogLength), nil
}
