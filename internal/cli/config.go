package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"codeberg.org/snonux/ankiform/internal/ankiconnect"
	"codeberg.org/snonux/ankiform/internal/assist"
	"codeberg.org/snonux/ankiform/internal/media"
	"codeberg.org/snonux/ankiform/internal/probe"
	"codeberg.org/snonux/ankiform/internal/server"
)

// Config is the application configuration. The note layout lives in the
// settings store, not here.
type Config struct {
	AnkiEndpoint string
	AnkiVersion  int
	AnkiTimeout  time.Duration

	ProbeInterval time.Duration
	ProbeTimeout  time.Duration

	StorePath     string
	CacheDir      string
	MediaMaxBytes int64

	Sanitize bool
	Markdown bool

	// OpenAIBaseURL points the OpenAI clients at a compatible endpoint.
	OpenAIBaseURL string

	AssistProvider    string
	AssistOpenAIModel string
	AssistGeminiModel string

	AudioOpenAIModel string
	AudioOpenAIVoice string
	AudioFormat      string

	ImageOpenAIModel string
	ImageOpenAISize  string

	ServerAddress string

	LogLevel  string
	LogFile   string
	LogFormat string
}

func stateDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "ankiform")
}

// setDefaults registers the default of every configuration key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anki.endpoint", ankiconnect.DefaultEndpoint)
	v.SetDefault("anki.version", ankiconnect.DefaultVersion)
	v.SetDefault("anki.timeout", ankiconnect.DefaultTimeout)
	v.SetDefault("probe.interval", probe.DefaultInterval)
	v.SetDefault("probe.timeout", probe.DefaultTimeout)
	v.SetDefault("store.path", filepath.Join(stateDir(), "ankiform.db"))
	v.SetDefault("cache.directory", filepath.Join(stateDir(), "cache"))
	v.SetDefault("media.max_bytes", media.DefaultMaxBytes)
	v.SetDefault("compose.sanitize", false)
	v.SetDefault("compose.markdown", false)
	v.SetDefault("assist.provider", assist.ProviderOpenAI)
	v.SetDefault("audio.openai_model", "gpt-4o-mini-tts")
	v.SetDefault("audio.openai_voice", "alloy")
	v.SetDefault("audio.format", "mp3")
	v.SetDefault("image.openai_model", "dall-e-2")
	v.SetDefault("image.openai_size", "512x512")
	v.SetDefault("server.address", server.DefaultAddress)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads the configuration from v and validates it.
func LoadConfig(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	cfg := &Config{
		AnkiEndpoint:      v.GetString("anki.endpoint"),
		AnkiVersion:       v.GetInt("anki.version"),
		AnkiTimeout:       v.GetDuration("anki.timeout"),
		ProbeInterval:     v.GetDuration("probe.interval"),
		ProbeTimeout:      v.GetDuration("probe.timeout"),
		StorePath:         expandHome(v.GetString("store.path")),
		CacheDir:          expandHome(v.GetString("cache.directory")),
		MediaMaxBytes:     v.GetInt64("media.max_bytes"),
		Sanitize:          v.GetBool("compose.sanitize"),
		Markdown:          v.GetBool("compose.markdown"),
		OpenAIBaseURL:     v.GetString("openai.base_url"),
		AssistProvider:    v.GetString("assist.provider"),
		AssistOpenAIModel: v.GetString("assist.openai_model"),
		AssistGeminiModel: v.GetString("assist.gemini_model"),
		AudioOpenAIModel:  v.GetString("audio.openai_model"),
		AudioOpenAIVoice:  v.GetString("audio.openai_voice"),
		AudioFormat:       v.GetString("audio.format"),
		ImageOpenAIModel:  v.GetString("image.openai_model"),
		ImageOpenAISize:   v.GetString("image.openai_size"),
		ServerAddress:     v.GetString("server.address"),
		LogLevel:          v.GetString("log.level"),
		LogFile:           expandHome(v.GetString("log.file")),
		LogFormat:         v.GetString("log.format"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AnkiEndpoint, validation.Required, is.URL),
		validation.Field(&c.AnkiVersion, validation.Required, validation.Min(1)),
		validation.Field(&c.AnkiTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ProbeInterval, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&c.ProbeTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.StorePath, validation.Required),
		validation.Field(&c.MediaMaxBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.OpenAIBaseURL, is.URL),
		validation.Field(&c.AssistProvider, validation.In(assist.ProviderOpenAI, assist.ProviderGemini)),
		validation.Field(&c.AudioFormat, validation.In("mp3", "wav", "opus", "aac", "flac")),
		validation.Field(&c.ServerAddress, validation.Required),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&c.LogFormat, validation.In("json", "text")),
	)
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// InitConfig initializes viper configuration. Variables from a .env file
// in the working directory are loaded first and never override the
// environment.
func InitConfig(cfgFile string) {
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".ankiform" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ankiform")
	}

	// ANKIFORM_ANKI_ENDPOINT overrides anki.endpoint
	viper.SetEnvPrefix("ANKIFORM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// WatchConfig calls onChange with the reloaded configuration whenever the
// config file changes. Invalid edits are logged and ignored.
func WatchConfig(v *viper.Viper, logger *slog.Logger, onChange func(*Config)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := LoadConfig(v)
		if err != nil {
			logger.Warn("config: ignoring change", slog.String("file", e.Name), slog.String("error", err.Error()))
			return
		}
		logger.Info("config: reloaded", slog.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	// First check environment variable
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString("assist.openai_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}
	return viper.GetString("assist.gemini_key")
}

// GetPixabayKey retrieves the Pixabay API key from environment or config
func GetPixabayKey() string {
	if key := os.Getenv("PIXABAY_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("image.pixabay_key")
}
