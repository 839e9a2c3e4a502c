package cmd

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "intervox"
)

type Config struct {
	Interviewer   string           `mapstructure:"interviewer"`
	Language      string           `mapstructure:"language"`
	ProfilesFile  string           `mapstructure:"profiles-file"`
	QuestionsFile string           `mapstructure:"questions-file"`
	OutputDir     string           `mapstructure:"output-dir"`
	Capture       *CaptureConfig   `mapstructure:"capture"`
	Synthesis     *SynthesisConfig `mapstructure:"synthesis"`
	AI            *AIConfig        `mapstructure:"ai"`
}

type CaptureConfig struct {
	Backend string         `mapstructure:"backend"`
	Stream  *StreamConfig  `mapstructure:"stream"`
	Whisper *WhisperConfig `mapstructure:"whisper"`
}

type StreamConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

type WhisperConfig struct {
	Binary    string `mapstructure:"binary"`
	ModelFile string `mapstructure:"model-file"`
}

type SynthesisConfig struct {
	Command string `mapstructure:"command"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "intervox is a voice-driven mock interview trainer with AI assessment",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is intervox.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config matters only for the run and assess commands. version works
	// without one.
	if runCmd.CalledAs() == "" && assessCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Everything has a built-in default; a missing file is fine
		// unless the user asked for a specific one.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	return config, nil
}
