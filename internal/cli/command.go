package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/ankiform/internal"
	"codeberg.org/snonux/ankiform/internal/archive"
	"codeberg.org/snonux/ankiform/internal/assist"
	"codeberg.org/snonux/ankiform/internal/batch"
	"codeberg.org/snonux/ankiform/internal/mcpserver"
	"codeberg.org/snonux/ankiform/internal/models"
	"codeberg.org/snonux/ankiform/internal/probe"
	"codeberg.org/snonux/ankiform/internal/server"
	"codeberg.org/snonux/ankiform/internal/settings"
	"codeberg.org/snonux/ankiform/internal/submit"
)

// CreateRootCommand creates and configures the root cobra command. The
// caller sets RunE to launch the GUI.
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ankiform",
		Short: "Anki note form for AnkiConnect",
		Long: `ankiform composes Anki notes from a word, its definition, sentences,
notes, audio and images, and adds them to a running Anki through the
AnkiConnect add-on.

Examples:
  ankiform                                   # Launch the GUI form (default)
  ankiform add ябълка -d apple --image a.png # Add a note from the command line
  ankiform preview cat -d feline --check     # Show the fields and check for duplicates
  ankiform serve                             # Serve the form API for a browser
  ankiform mcp                               # Serve the form as MCP tools over stdio`,
		Args:          cobra.NoArgs,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		newAddCommand(flags),
		newPreviewCommand(flags),
		newSettingsCommand(flags),
		newDecksCommand(flags),
		newModelsCommand(flags),
		newFieldsCommand(flags),
		newStatusCommand(flags),
		newHistoryCommand(flags),
		newServeCommand(flags),
		newMCPCommand(flags),
		newGenerateCommand(flags),
		newCheckCommand(flags),
		newOpenAIModelsCommand(flags),
		newArchiveCacheCommand(flags),
	)
	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.ankiform.yaml)")
	cmd.PersistentFlags().StringVar(&flags.Endpoint, "endpoint", "", "AnkiConnect URL (default http://127.0.0.1:8765)")
	cmd.PersistentFlags().StringVar(&flags.StorePath, "store", "", "settings and history database")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("anki.endpoint", cmd.PersistentFlags().Lookup("endpoint"))
	viper.BindPFlag("store.path", cmd.PersistentFlags().Lookup("store"))
	viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
}

// Bootstrap loads the configuration and wires the application.
func Bootstrap() (*App, error) {
	cfg, err := LoadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return NewApp(cfg, LoadKeys())
}

// withApp runs fn with a bootstrapped application.
func withApp(fn func(cmd *cobra.Command, args []string, app *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap()
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(cmd, args, app)
	}
}

func wordArg(args []string, flags *Flags) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if flags.WordFromClipboard {
		word, err := clipboard.ReadAll()
		if err != nil {
			return "", fmt.Errorf("failed to read the clipboard: %w", err)
		}
		return strings.TrimSpace(word), nil
	}
	return "", nil
}

func newAddCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [word]",
		Short: "Compose a note and add it to Anki",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			word, err := wordArg(args, flags)
			if err != nil {
				return err
			}
			form := flags.FormState(word)
			if err := app.Fill(cmd.Context(), &form, flags); err != nil {
				return err
			}

			res, err := app.Processor.Submit(cmd.Context(), form)
			status := submit.Outcome(res, err)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, status.Message)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Note ID: %d\n", res.NoteID)
			for _, m := range res.Media {
				fmt.Fprintf(out, "Stored: %s\n", m.Filename)
			}
			return nil
		}),
	}
	addFormFlags(cmd.Flags(), flags)
	return cmd
}

func newPreviewCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview [word]",
		Short: "Show the fields a note would get without adding it",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			word, err := wordArg(args, flags)
			if err != nil {
				return err
			}
			form := flags.FormState(word)
			if err := app.Fill(cmd.Context(), &form, flags); err != nil {
				return err
			}
			note, err := app.Processor.Preview(cmd.Context(), form)
			if err != nil {
				return err
			}

			text := note.Preview()
			fmt.Fprint(cmd.OutOrStdout(), text)
			if flags.Check && note.Front != "" {
				ok, err := app.Processor.CanAdd(cmd.Context(), note)
				if err != nil {
					return err
				}
				if ok {
					fmt.Fprintln(cmd.OutOrStdout(), "\nAnki would accept this note.")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "\nAnki would reject this note (duplicate or invalid).")
				}
			}
			if flags.CopyPreview {
				if err := clipboard.WriteAll(text); err != nil {
					return fmt.Errorf("failed to copy the preview: %w", err)
				}
			}
			return nil
		}),
	}
	addFormFlags(cmd.Flags(), flags)
	cmd.Flags().BoolVar(&flags.Check, "check", false, "Ask Anki whether the note can be added")
	cmd.Flags().BoolVar(&flags.CopyPreview, "copy", false, "Copy the preview to the clipboard")
	return cmd
}

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

func newDecksCommand(_ *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "decks",
		Short: "List the deck names",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			decks, err := app.Processor.Decks(cmd.Context())
			if err != nil {
				return err
			}
			printLines(cmd.OutOrStdout(), decks)
			return nil
		}),
	}
}

func newModelsCommand(_ *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the note type names",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			names, err := app.Processor.Models(cmd.Context())
			if err != nil {
				return err
			}
			printLines(cmd.OutOrStdout(), names)
			return nil
		}),
	}
}

func newFieldsCommand(_ *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "fields [model]",
		Short: "List the fields of a note type (default: the configured one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			s := app.Processor.Settings(cmd.Context())
			model := s.ModelName
			if len(args) > 0 {
				model = args[0]
			}
			fields, err := app.Processor.ModelFields(cmd.Context(), model)
			if err != nil {
				return err
			}
			printLines(cmd.OutOrStdout(), fields)

			if len(args) == 0 {
				missing, err := app.Processor.MissingFields(cmd.Context(), s)
				if err != nil {
					return err
				}
				if len(missing) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "\nWarning: settings refer to missing fields: %s\n", strings.Join(missing, ", "))
				}
			}
			return nil
		}),
	}
}

func newStatusCommand(_ *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether AnkiConnect is reachable",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			state := app.Prober(nil).Check(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", state.Banner(), app.Config.AnkiEndpoint)
			if state != probe.Connected {
				return fmt.Errorf("AnkiConnect is not reachable")
			}
			return nil
		}),
	}
}

func newHistoryCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent submissions",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			entries, err := app.Processor.History(cmd.Context(), flags.HistoryLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				result := fmt.Sprintf("note %d", e.NoteID)
				if !e.Succeeded() {
					result = "error: " + e.Error
				}
				fmt.Fprintf(out, "%s  %-20s  %s/%s  %s\n",
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Front, e.Deck, e.Model, result)
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&flags.HistoryLimit, "limit", "l", flags.HistoryLimit, "Number of entries")
	return cmd
}

func newServeCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the form API and connection events over HTTP",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			WatchConfig(viper.GetViper(), app.Logger, func(cfg *Config) {
				if err := app.Log.SetLevel(cfg.LogLevel); err != nil {
					app.Logger.Warn("config: bad log level", "error", err)
				}
			})

			address := app.Config.ServerAddress
			if flags.ServerAddress != "" {
				address = flags.ServerAddress
			}
			srv := server.New(server.Config{
				Address:   address,
				Processor: app.Processor,
				Checker:   app.Client,
				Probe: &probe.Config{
					Interval: app.Config.ProbeInterval,
					Timeout:  app.Config.ProbeTimeout,
					Logger:   app.Logger,
				},
				Generator: app.Generator,
				Endpoint:  app.Config.AnkiEndpoint,
				Logger:    app.Logger,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", address)
			return srv.Run(ctx)
		}),
	}
	cmd.Flags().StringVarP(&flags.ServerAddress, "address", "a", "", "Listen address (default 127.0.0.1:8766)")
	return cmd
}

func newMCPCommand(_ *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the form as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ *cobra.Command, _ []string, app *App) error {
			return mcpserver.New(app.Processor, app.Client).ServeStdio()
		}),
	}
}

func newGenerateCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <section> <word>",
		Short: "Generate the text of a section with the assistant",
		Long: `Generate the text of one section (definition, sentence, sentenceTranslation,
exampleSentences or notes) with the configured OpenAI or Gemini assistant.`,
		Args: cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			sec, err := settings.ParseSection(args[0])
			if err != nil {
				return err
			}
			if !assist.Supports(sec) {
				return fmt.Errorf("cannot generate section %s", sec)
			}
			if app.Generator == nil {
				return fmt.Errorf("no assistant API key configured (set OPENAI_API_KEY or GEMINI_API_KEY)")
			}
			text, err := app.Generator.Generate(cmd.Context(), sec, assist.Request{
				Word:     args[1],
				Sentence: flags.Sentence,
				Language: flags.Language,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&flags.Sentence, "sentence", "s", "", "Sentence to translate or explain")
	cmd.Flags().StringVar(&flags.Language, "language", flags.Language, "Language of the explanation")
	return cmd
}

// ContextWithSignals returns a context cancelled on SIGINT or SIGTERM.
func ContextWithSignals() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newCheckCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Ask Anki whether each line of a word list would make a valid note",
		Long: `Compose a note for every line of a word list and ask Anki whether it
would accept it. Nothing is added. Lines hold a word, optionally followed
by "= definition". The form flags apply to every line.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			entries, err := batch.ReadFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rejected := 0
			for _, e := range entries {
				ok, err := checkEntry(cmd.Context(), app, flags, e)
				if err != nil {
					return fmt.Errorf("line %d (%s): %w", e.Line, e.Word, err)
				}
				if ok {
					fmt.Fprintf(out, "%s: would be accepted\n", e.Word)
					continue
				}
				rejected++
				fmt.Fprintf(out, "%s: would be rejected (duplicate or invalid)\n", e.Word)
			}
			if rejected > 0 {
				return fmt.Errorf("%d of %d notes would be rejected", rejected, len(entries))
			}
			return nil
		}),
	}
	addFormFlags(cmd.Flags(), flags)
	return cmd
}

func checkEntry(ctx context.Context, app *App, flags *Flags, e batch.Entry) (bool, error) {
	form := flags.FormState(e.Word)
	if e.Definition != "" {
		form.Definition = e.Definition
	}
	if err := app.Fill(ctx, &form, flags); err != nil {
		return false, err
	}
	note, err := app.Processor.Preview(ctx, form)
	if err != nil {
		return false, err
	}
	return app.Processor.CanAdd(ctx, note)
}

func newOpenAIModelsCommand(_ *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "openai-models",
		Short: "List the OpenAI models available for audio, images and the assistant",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			if app.Models == nil {
				return models.ErrNoAPIKey
			}
			catalog, err := app.Models.List(cmd.Context())
			if err != nil {
				return err
			}
			catalog.Write(cmd.OutOrStdout())
			return nil
		}),
	}
}

func newArchiveCacheCommand(_ *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "archive-cache",
		Short: "Move the generated audio and image cache to the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(viper.GetViper())
			if err != nil {
				return err
			}
			path, err := archive.Directory(cfg.CacheDir, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache archived to: %s\n", path)
			return nil
		},
	}
}
