// ABOUTME: Cobra command for interactive embedding provider setup.
// ABOUTME: Launches a bubbletea TUI wizard to collect and validate API credentials.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/scholar/internal/config"
	"github.com/2389-research/scholar/internal/embeddings"
	"github.com/2389-research/scholar/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Connect an embeddings API",
	Long:  "Interactive wizard to configure and validate remote embedding API credentials.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	model := tui.NewSetupModel(
		cfg.Embedding.APIURL,
		cfg.Embedding.Model,
		cfg.Embedding.APIKey,
	)

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	apiURL, embedModel, apiKey := final.Result()
	cfg.Embedding.Provider = string(embeddings.ProviderRemote)
	cfg.Embedding.APIURL = apiURL
	cfg.Embedding.Model = embedModel
	cfg.Embedding.APIKey = apiKey

	if configPath != "" {
		err = cfg.SaveTo(configPath)
	} else {
		err = cfg.Save()
	}
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if configPath != "" {
		fmt.Printf("Config saved to %s\n", configPath)
		return nil
	}
	path, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", path)
	}
	return nil
}
