package main

import (
	"fmt"
	"os"

	"foodprices/internal/app"
	"foodprices/internal/config"
	"foodprices/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	// Logs would corrupt the terminal UI; keep only errors unless asked.
	v.SetDefault("log.level", "error")

	cmd := &cobra.Command{
		Use:          "dashboard",
		Short:        "Explore the global food prices dataset in the terminal",
		SilenceUsage: true,
	}
	configFile := app.BindFlags(cmd, v)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := app.Setup(v, *configFile)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx := cmd.Context()
		backend, err := app.Open(ctx, cfg, log, os.Stderr)
		if err != nil {
			return err
		}
		defer backend.Close()

		model, err := tui.NewModel(ctx, backend, cfg.Query.PreviewRows)
		if err != nil {
			return err
		}

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		_, err = p.Run()
		return err
	}
	return cmd
}
