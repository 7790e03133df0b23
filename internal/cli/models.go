// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/jeranaias/playground-tui/internal/catalog"
	"github.com/jeranaias/playground-tui/internal/model"
	"github.com/jeranaias/playground-tui/internal/storage"
)

var modelsFlags struct {
	watch bool
	json  bool
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show or replace the model-configuration list",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the configured models",
	Args:  cobra.NoArgs,
	RunE:  runModelsList,
}

var modelsSetCmd = &cobra.Command{
	Use:   "set <file.json>",
	Short: "Replace the list with the entries in a JSON file",
	Long: `Replace the model-configuration list with the entries in a JSON file.

The file holds an array of {"model", "baseUrl", "apiKey", "lastUpdated"}
objects. Entries without lastUpdated are stamped with today's date.`,
	Args: cobra.ExactArgs(1),
	RunE: runModelsSet,
}

func init() {
	modelsListCmd.Flags().BoolVarP(&modelsFlags.watch, "watch", "w", false, "refresh until interrupted")
	modelsListCmd.Flags().BoolVar(&modelsFlags.json, "json", false, "print raw JSON")
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsSetCmd)
}

func runModelsList(cmd *cobra.Command, args []string) error {
	client := catalog.New(rt.cfg.Endpoints.ModelsURL)
	out := cmd.OutOrStdout()
	current := rt.cfg.RunSettings().Model

	if !modelsFlags.watch {
		list, err := client.List(cmd.Context())
		if err != nil {
			return err
		}
		if modelsFlags.json {
			return writeModelsJSON(out, list)
		}
		printModels(out, list, current)
		return nil
	}

	ctx, stop := signalContext()
	defer stop()
	client.Watch(ctx, rt.cfg.PollInterval(), func(r catalog.Result) {
		fmt.Fprintf(out, "\n%s\n", infoStyle.Render(time.Now().Format("15:04:05")))
		if r.Err != nil {
			fmt.Fprintf(out, "%s %v\n", errorStyle.Render("[Error]"), r.Err)
			return
		}
		printModels(out, r.Models, current)
	})
	return nil
}

func runModelsSet(cmd *cobra.Command, args []string) error {
	list, err := readModelsFile(args[0], time.Now())
	if err != nil {
		return err
	}

	client := catalog.New(rt.cfg.Endpoints.ModelsURL)
	ctx, cancel := context.WithTimeout(cmd.Context(), catalog.DefaultTimeout)
	defer cancel()
	if err := client.Replace(ctx, list); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d models\n", commandStyle.Render("Saved"), len(list))
	return nil
}

// readModelsFile decodes and validates a list from disk.
func readModelsFile(path string, now time.Time) ([]model.ModelConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read models file: %w", err)
	}
	var list []model.ModelConfiguration
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse models file %s: %w", path, err)
	}
	if list == nil {
		list = []model.ModelConfiguration{}
	}
	for i := range list {
		if list[i].LastUpdated == "" {
			list[i].Touch(now)
		}
	}
	if err := storage.Validate(list); err != nil {
		return nil, err
	}
	return list, nil
}

// printModels prints a table of the list, marking the selected model.
func printModels(w io.Writer, list []model.ModelConfiguration, current string) {
	if len(list) == 0 {
		fmt.Fprintln(w, infoStyle.Render("No models configured"))
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(infoStyle).
		Headers("", "MODEL", "BASE URL", "API KEY", "UPDATED")
	for _, c := range list {
		marker := ""
		if c.Model == current {
			marker = "*"
		}
		t.Row(marker, c.Model, c.BaseURL, c.MaskedKey(), c.LastUpdated)
	}
	fmt.Fprintln(w, t.Render())
}

func writeModelsJSON(w io.Writer, list []model.ModelConfiguration) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}
