package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fentz26/focal/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive Do list",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	app := tui.New(service)
	if err := app.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
