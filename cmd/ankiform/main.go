package main

import (
	"os"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"codeberg.org/snonux/ankiform/internal/cli"
	"codeberg.org/snonux/ankiform/internal/gui"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)
	rootCmd.Flags().StringVar(&flags.Language, "language", flags.Language, "Language of generated explanations")

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Without a subcommand the GUI form is launched
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runGUI(flags)
	}

	ctx, cancel := cli.ContextWithSignals()
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

func runGUI(flags *cli.Flags) error {
	svc, err := cli.Bootstrap()
	if err != nil {
		return err
	}
	defer svc.Close()

	fyneApp := app.NewWithID("org.codeberg.snonux.ankiform")
	gui.New(fyneApp, svc, &gui.Options{Language: flags.Language}).Run()
	return nil
}
