package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samuelfneumann/wsnlearn/experiment/plotter"
	"github.com/samuelfneumann/wsnlearn/experiment/tracker"
	"github.com/spf13/cobra"
)

func plotCommand() *cobra.Command {
	var history string

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Draw the learning charts of a training run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if history == "" {
				history = filepath.Join(outputDir, HistoryFile)
			}
			data, err := loadHistory(history)
			if err != nil {
				return err
			}
			if err := plotter.Save(data, outputDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %v and %v to %v\n",
				plotter.PNGFile, plotter.HTMLFile, outputDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&history, "history", "",
		"History file (.gob or .json), defaults to the one in --out")
	return cmd
}

// loadHistory loads a gob or JSON encoded episode history
func loadHistory(filename string) ([]tracker.EpisodeMetrics, error) {
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		return tracker.LoadJSON(filename)
	}
	return tracker.LoadData(filename)
}
