package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Write default settings or show the resolved configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long: `Writes the default settings, including the asset and exclusion keyword
lists, to the configuration file. Existing settings are kept unless --force
is given.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing settings with defaults")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	svc, release, err := loadServices(cmd, FactoryOptions{})
	if err != nil {
		return err
	}
	defer release()
	if svc.Settings == nil {
		return errors.New("settings service not configured")
	}

	settings := svc.Settings.Defaults()
	if !configForce {
		current, err := svc.Settings.Get()
		if err != nil {
			return fmt.Errorf("failed to read settings: %w", err)
		}
		settings = *current
	}
	if err := svc.Settings.Save(&settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Println("Configuration written.")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, release, err := loadServices(cmd, FactoryOptions{})
	if err != nil {
		return err
	}
	defer release()
	if svc.Settings == nil {
		return errors.New("settings service not configured")
	}

	s, err := svc.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	printSettings(cmd, s)
	return nil
}

func printSettings(cmd *cobra.Command, s *domain.Settings) {
	cmd.Println(uiStyles.Title.Render("[Pipeline]"))
	cmd.Printf("  Workers: %d\n", s.Pipeline.Workers)
	cmd.Printf("  Store: %s\n", s.Pipeline.Store)
	cmd.Printf("  Data dir: %s\n", orDefault(s.Pipeline.DataDir))
	cmd.Printf("  Metadata: %s\n", orDefault(s.Pipeline.Metadata))
	cmd.Println()

	cmd.Println(uiStyles.Title.Render("[Reducer]"))
	cmd.Printf("  Window: %d\n", s.Reducer.Window)
	cmd.Printf("  Max lines: %d\n", s.Reducer.MaxLines)
	cmd.Printf("  Include: %d keywords\n", len(s.Reducer.Include))
	cmd.Printf("  Exclude: %s\n", strings.Join(s.Reducer.Exclude, ", "))
	cmd.Println()

	cmd.Println(uiStyles.Title.Render("[Extraction]"))
	cmd.Printf("  Order: %s\n", strings.Join(s.Extraction.Order, " -> "))
	cmd.Printf("  Retries: %d\n", s.Extraction.Retries)
	cmd.Printf("  Timeout: %s\n", s.Extraction.Timeout)
	for _, name := range sortedKeys(s.Extraction.Backends) {
		b := s.Extraction.Backends[name]
		cmd.Printf("  [%s] %s, model %s\n", name, b.Provider.Description(), b.Model)
		if b.BaseURL != "" {
			cmd.Printf("    Base URL: %s\n", b.BaseURL)
		}
		if b.Provider.RequiresAPIKey() {
			if b.APIKey != "" {
				cmd.Printf("    API Key: %s\n", maskAPIKey(b.APIKey))
			} else {
				cmd.Printf("    API Key: (not set)\n")
			}
		}
		if b.RequestsPerSecond > 0 {
			cmd.Printf("    Rate limit: %.2f/s, burst %d\n", b.RequestsPerSecond, b.Burst)
		}
		status := "configured"
		if !b.IsConfigured() {
			status = "not configured"
		}
		cmd.Printf("    Status: %s\n", status)
	}
	cmd.Println()

	cmd.Println(uiStyles.Title.Render("[Translation]"))
	cmd.Printf("  Mode: %s\n", s.Translation.Mode)
	if s.Translation.Mode == domain.TranslationLibreTranslate {
		cmd.Printf("  URL: %s\n", orDefault(s.Translation.URL))
		cmd.Printf("  Languages: %s\n", strings.Join(s.Translation.Languages, ", "))
		cmd.Printf("  Chunk size: %d\n", s.Translation.ChunkSize)
	}
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}
