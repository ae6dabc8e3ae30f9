// Package config reads the action's settings from the environment. Action
// inputs arrive as INPUT_* variables and take precedence over the plain names
// used for local runs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/barabum0/ai-issue-action/internals/event"
	"github.com/barabum0/ai-issue-action/internals/git"
	"github.com/barabum0/ai-issue-action/internals/llm"
	"github.com/barabum0/ai-issue-action/internals/prompt"
)

type Config struct {
	EventPath  string `mapstructure:"event_path"`
	OutputPath string `mapstructure:"output_path"`
	Trigger    string `mapstructure:"trigger"`

	GitHubToken  string `mapstructure:"github_token"`
	GitHubAPIURL string `mapstructure:"github_api_url"`
	GitLabToken  string `mapstructure:"gitlab_token"`
	GitLabURL    string `mapstructure:"gitlab_url"`

	AnthropicAPIKey string  `mapstructure:"anthropic_api_key"`
	Model           string  `mapstructure:"model"`
	MaxTokens       int64   `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxDiffChars    int     `mapstructure:"max_diff_chars"`

	SlackBotToken string `mapstructure:"slack_bot_token"`
	SlackChannel  string `mapstructure:"slack_channel"`

	LogLevel    string `mapstructure:"log_level"`
	RunnerDebug bool   `mapstructure:"runner_debug"`
}

// env lists, per key, the variables consulted in order of precedence.
var env = map[string][]string{
	"event_path":        {"GITHUB_EVENT_PATH"},
	"output_path":       {"GITHUB_OUTPUT"},
	"trigger":           {"INPUT_TRIGGER", "AI_ISSUE_TRIGGER"},
	"github_token":      {"INPUT_GITHUB_TOKEN", "GITHUB_TOKEN"},
	"github_api_url":    {"GITHUB_API_URL"},
	"gitlab_token":      {"INPUT_GITLAB_TOKEN", "GITLAB_TOKEN"},
	"gitlab_url":        {"INPUT_GITLAB_URL", "GITLAB_URL"},
	"anthropic_api_key": {"INPUT_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
	"model":             {"INPUT_MODEL", "AI_ISSUE_MODEL"},
	"max_tokens":        {"INPUT_MAX_TOKENS"},
	"temperature":       {"INPUT_TEMPERATURE"},
	"max_diff_chars":    {"INPUT_MAX_DIFF_CHARS"},
	"slack_bot_token":   {"INPUT_SLACK_BOT_TOKEN", "SLACK_BOT_TOKEN"},
	"slack_channel":     {"INPUT_SLACK_CHANNEL", "SLACK_CHANNEL"},
	"log_level":         {"INPUT_LOG_LEVEL", "LOG_LEVEL"},
	"runner_debug":      {"RUNNER_DEBUG"},
}

// flagKeys maps command line flags onto config keys. A flag the user set wins
// over the environment.
var flagKeys = map[string]string{
	"event-path":     "event_path",
	"trigger":        "trigger",
	"model":          "model",
	"max-tokens":     "max_tokens",
	"temperature":    "temperature",
	"max-diff-chars": "max_diff_chars",
	"log-level":      "log_level",
}

// Load reads .env files when present, then the environment, then any flags in
// flags. flags may be nil. Variables already set win over .env entries.
//
// On an Actions runner the working directory is the checked out repository,
// whose .env belongs to the user's project, so no .env file is read there.
func Load(flags *pflag.FlagSet, dotenvFiles ...string) (Config, error) {
	if err := loadDotEnv(dotenvFiles); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetDefault("trigger", event.DefaultTrigger)
	v.SetDefault("github_api_url", git.DefaultGitHubAPIURL)
	v.SetDefault("model", llm.DefaultModel)
	v.SetDefault("max_tokens", llm.DefaultMaxTokens)
	v.SetDefault("temperature", llm.DefaultTemperature)
	v.SetDefault("max_diff_chars", prompt.DefaultMaxDiffChars)
	v.SetDefault("log_level", "info")

	for key, names := range env {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("max_tokens must be positive, got %d", cfg.MaxTokens)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 1 {
		return Config{}, fmt.Errorf("temperature must be between 0 and 1, got %v", cfg.Temperature)
	}
	return cfg, nil
}

func loadDotEnv(files []string) error {
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		return nil
	}
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks the credentials needed to act on platform. It runs only
// once a comment has triggered the action, so untriggered runs need no
// secrets.
func (c Config) Validate(platform git.Platform) error {
	var missing []string
	switch platform {
	case git.PlatformGitHub:
		if c.GitHubToken == "" {
			missing = append(missing, "github_token (GITHUB_TOKEN)")
		}
	case git.PlatformGitLab:
		if c.GitLabToken == "" {
			missing = append(missing, "gitlab_token (GITLAB_TOKEN)")
		}
	}
	if c.AnthropicAPIKey == "" {
		missing = append(missing, "anthropic_api_key (ANTHROPIC_API_KEY)")
	}
	if (c.SlackBotToken == "") != (c.SlackChannel == "") {
		return errors.New("slack_bot_token and slack_channel must be set together")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

// SlogLevel honours the runner's debug switch over the configured level.
func (c Config) SlogLevel() slog.Level {
	if c.RunnerDebug {
		return slog.LevelDebug
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
