package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/ankiform/internal/settings"
)

// settingKeys lists the keys accepted by "settings set".
var settingKeys = []string{
	"deck", "model", "front", "back",
	"audio1", "audio2", "images",
	"allow-duplicate", "tags", "map",
}

// applySetting returns s with key set to value.
//
//	deck, model, front, back   a field or deck name
//	audio1, audio2, images     front, back, none or field:<name>
//	allow-duplicate            true or false
//	tags                       comma separated, empty for none
//	map                        <section>=<field>, empty field removes the mapping
func applySetting(s settings.Settings, key, value string) (settings.Settings, error) {
	out := s.Clone()
	switch key {
	case "deck":
		out.DeckName = strings.TrimSpace(value)
	case "model":
		out.ModelName = strings.TrimSpace(value)
	case "front":
		out.FrontFieldName = strings.TrimSpace(value)
	case "back":
		out.BackFieldName = strings.TrimSpace(value)
	case "audio1", "audio2", "images":
		p, err := settings.ParsePlacement(value)
		if err != nil {
			return s, err
		}
		switch key {
		case "audio1":
			out.Audio1Target = p
		case "audio2":
			out.Audio2Target = p
		default:
			out.ImagesTarget = p
		}
	case "allow-duplicate":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return s, fmt.Errorf("allow-duplicate: %w", err)
		}
		out.AllowDuplicate = b
	case "tags":
		out.Tags = []string{}
		for _, t := range strings.Split(value, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out.Tags = append(out.Tags, t)
			}
		}
	case "map":
		id, field, ok := strings.Cut(value, "=")
		if !ok {
			return s, fmt.Errorf("map wants <section>=<field>, got %q", value)
		}
		sec, err := settings.ParseSection(strings.TrimSpace(id))
		if err != nil {
			return s, err
		}
		if sec == settings.TargetWord {
			return s, fmt.Errorf("targetWord always goes to the front field")
		}
		return out.MapSection(sec, field)
	default:
		return s, fmt.Errorf("unknown setting %q (want one of %s)", key, strings.Join(settingKeys, ", "))
	}
	return out, nil
}

func newSettingsCommand(_ *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and edit the note layout settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the settings as YAML",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			return settings.ExportYAML(cmd.OutOrStdout(), app.Processor.Settings(cmd.Context()))
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting (" + strings.Join(settingKeys, ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			s, err := applySetting(app.Processor.Settings(cmd.Context()), args[0], args[1])
			if err != nil {
				return err
			}
			saved, err := app.Processor.SaveSettings(cmd.Context(), s)
			if err != nil {
				return err
			}
			return settings.ExportYAML(cmd.OutOrStdout(), saved)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "move <section> <position>",
		Short: "Move a section to a position in the section order (0 is first)",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			sec, err := settings.ParseSection(args[0])
			if err != nil {
				return err
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("position: %w", err)
			}
			s, err := app.Processor.Settings(cmd.Context()).MoveSection(sec, to)
			if err != nil {
				return err
			}
			saved, err := app.Processor.SaveSettings(cmd.Context(), s)
			if err != nil {
				return err
			}
			for i, sec := range saved.SectionOrder {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i, sec.Label())
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			if err := app.Processor.ResetSettings(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings reset to defaults")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Write the settings as YAML to file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			var w io.Writer = cmd.OutOrStdout()
			if len(args) > 0 {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return settings.ExportYAML(w, app.Processor.Settings(cmd.Context()))
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Replace the settings with a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			s, err := settings.ImportYAML(f)
			if err != nil {
				return err
			}
			if _, err := app.Processor.SaveSettings(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settings imported from %s\n", args[0])
			return nil
		}),
	})

	return cmd
}
