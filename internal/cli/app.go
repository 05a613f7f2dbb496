package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/snonux/ankiform/internal/ankiconnect"
	"codeberg.org/snonux/ankiform/internal/assist"
	"codeberg.org/snonux/ankiform/internal/audio"
	"codeberg.org/snonux/ankiform/internal/compose"
	"codeberg.org/snonux/ankiform/internal/image"
	"codeberg.org/snonux/ankiform/internal/logging"
	"codeberg.org/snonux/ankiform/internal/media"
	"codeberg.org/snonux/ankiform/internal/models"
	"codeberg.org/snonux/ankiform/internal/probe"
	"codeberg.org/snonux/ankiform/internal/processor"
	"codeberg.org/snonux/ankiform/internal/settings"
	"codeberg.org/snonux/ankiform/internal/store"
)

// Keys holds the API keys of the optional CREATE/SEARCH providers.
type Keys struct {
	OpenAI  string
	Gemini  string
	Pixabay string
}

// LoadKeys reads the API keys from the environment and config.
func LoadKeys() Keys {
	return Keys{
		OpenAI:  GetOpenAIKey(),
		Gemini:  GetGeminiKey(),
		Pixabay: GetPixabayKey(),
	}
}

// App holds the wired application services shared by every front end.
// Optional providers are nil when their API key is missing.
type App struct {
	Config    *Config
	Log       logging.Runtime
	Logger    *slog.Logger
	DB        *store.DB
	Client    *ankiconnect.Client
	Processor *processor.Processor

	Generator   *assist.Generator
	Speaker     audio.Speaker
	Illustrator image.Illustrator
	Images      *image.Downloader
	Models      *models.Lister
}

// NewApp opens the store and wires the services described by cfg.
func NewApp(cfg *Config, keys Keys) (*App, error) {
	rt, err := logging.New(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}
	logger := rt.Logger
	slog.SetDefault(logger)

	db, err := store.Open(cfg.StorePath)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	client := ankiconnect.NewClient(&ankiconnect.Config{
		Endpoint:        cfg.AnkiEndpoint,
		Version:         cfg.AnkiVersion,
		Timeout:         cfg.AnkiTimeout,
		BreakerFailures: ankiconnect.DefaultConfig().BreakerFailures,
		BreakerCooldown: ankiconnect.DefaultConfig().BreakerCooldown,
		Logger:          logger,
	})

	a := &App{
		Config: cfg,
		Log:    rt,
		Logger: logger,
		DB:     db,
		Client: client,
		Processor: processor.NewProcessor(processor.Config{
			Remote:   client,
			Settings: settings.NewStore(db, logger),
			History:  db,
			Composer: compose.NewComposer(compose.WithSanitizer(cfg.Sanitize), compose.WithMarkdown(cfg.Markdown)),
			Encoder:  media.NewEncoder(&media.Config{MaxBytes: cfg.MediaMaxBytes, Prefix: media.DefaultPrefix, Logger: logger}),
			Logger:   logger,
		}),
	}
	a.wireProviders(keys)
	return a, nil
}

func (a *App) wireProviders(keys Keys) {
	cfg := a.Config

	gen, err := assist.New(assist.Config{
		Provider:      cfg.AssistProvider,
		OpenAIKey:     keys.OpenAI,
		OpenAIModel:   cfg.AssistOpenAIModel,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		GeminiKey:     keys.Gemini,
		GeminiModel:   cfg.AssistGeminiModel,
		Logger:        a.Logger,
	})
	if err != nil {
		a.Logger.Debug("assist disabled", slog.String("reason", err.Error()))
	} else {
		a.Generator = gen
	}

	audioCfg := audio.DefaultProviderConfig()
	audioCfg.OpenAIKey = keys.OpenAI
	audioCfg.OpenAIBaseURL = cfg.OpenAIBaseURL
	audioCfg.OpenAIModel = cfg.AudioOpenAIModel
	audioCfg.OpenAIVoice = cfg.AudioOpenAIVoice
	audioCfg.OutputFormat = cfg.AudioFormat
	audioCfg.CacheDir = cfg.CacheDir
	audioCfg.EnableCache = cfg.CacheDir != ""
	audioCfg.Logger = a.Logger
	if speaker, err := audio.NewProvider(audioCfg); err != nil {
		a.Logger.Debug("audio disabled", slog.String("reason", err.Error()))
	} else {
		a.Speaker = speaker
	}

	if keys.OpenAI != "" {
		a.Models = models.NewLister(keys.OpenAI, cfg.OpenAIBaseURL)
		a.Illustrator = image.NewOpenAIClient(&image.OpenAIConfig{
			APIKey:   keys.OpenAI,
			BaseURL:  cfg.OpenAIBaseURL,
			Model:    cfg.ImageOpenAIModel,
			Size:     cfg.ImageOpenAISize,
			CacheDir: cfg.CacheDir,
			Logger:   a.Logger,
		})
	}
	if keys.Pixabay != "" {
		opts := image.DefaultDownloadOptions()
		opts.Logger = a.Logger
		a.Images = image.NewDownloader(image.NewPixabayClient(keys.Pixabay), opts)
	}
}

// Prober returns a prober for the configured AnkiConnect.
func (a *App) Prober(onState func(probe.State)) *probe.Prober {
	return probe.New(a.Client, &probe.Config{
		Interval: a.Config.ProbeInterval,
		Timeout:  a.Config.ProbeTimeout,
		Logger:   a.Logger,
	}, onState)
}

// Close releases the store and the log file.
func (a *App) Close() error {
	return errors.Join(a.DB.Close(), a.Log.Close())
}

// Fill runs the requested CREATE/SEARCH actions on form. Sections that
// already hold text are not regenerated.
func (a *App) Fill(ctx context.Context, form *compose.FormState, flags *Flags) error {
	sections, err := flags.GenerateSections()
	if err != nil {
		return err
	}
	for _, sec := range sections {
		if form.Text(sec) != "" {
			continue
		}
		if a.Generator == nil {
			return fmt.Errorf("cannot generate %s: no assistant API key configured", sec)
		}
		text, err := a.Generator.Generate(ctx, sec, assist.Request{
			Word:     form.TargetWord,
			Sentence: form.Sentence,
			Language: flags.Language,
		})
		if err != nil {
			return err
		}
		form.SetText(sec, text)
	}

	if flags.CreateWordAudio && form.WordAudio == nil {
		if form.WordAudio, err = a.speak(ctx, form.TargetWord); err != nil {
			return err
		}
	}
	if flags.CreateSentenceAudio && form.SentenceAudio == nil {
		if form.Sentence == "" {
			return fmt.Errorf("cannot create sentence audio: the sentence is empty")
		}
		if form.SentenceAudio, err = a.speak(ctx, form.Sentence); err != nil {
			return err
		}
	}
	if flags.CreateImage {
		if a.Illustrator == nil {
			return fmt.Errorf("cannot create image: no OpenAI API key configured")
		}
		att, err := a.Illustrator.Illustrate(ctx, form.TargetWord, form.Definition)
		if err != nil {
			return err
		}
		form.AddImages(att)
	}
	if flags.SearchImage {
		if a.Images == nil {
			return fmt.Errorf("cannot search images: no Pixabay API key configured")
		}
		att, _, err := a.Images.DownloadBestMatch(ctx, form.TargetWord)
		if err != nil {
			return err
		}
		form.AddImages(att)
	}
	return nil
}

func (a *App) speak(ctx context.Context, text string) (media.Attachment, error) {
	if a.Speaker == nil {
		return nil, fmt.Errorf("cannot create audio: no OpenAI API key configured")
	}
	return a.Speaker.Speak(ctx, text)
}
