package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/blueprint/internal/blueprint"
	"github.com/abhisek/blueprint/internal/config"
	"github.com/abhisek/blueprint/internal/logger"
	"github.com/abhisek/blueprint/internal/store"
)

// Resolved in PersistentPreRunE for every command.
var (
	cfg      *config.Config
	log      *logger.Logger
	registry *blueprint.Registry
)

var rootCmd = &cobra.Command{
	Use:   "blueprint",
	Short: "Adaptive assessment blueprint engine",
	Long: `blueprint selects and scores adaptive assessments from blueprint documents.

A blueprint declares per-dimension difficulty quotas, anchor items, exposure
limits and critical-item policies. Item banks are imported into a local SQLite
database, selections are drawn per assessment and responses are scored into
GREEN/YELLOW/ORANGE/RED style buckets.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		c, err := config.Load(cmd.Flags(), configFile)
		if err != nil {
			return err
		}
		l, err := logger.New(c.LogMode, c.LogLevel)
		if err != nil {
			return err
		}
		cfg, log = c, l
		registry = blueprint.NewDefaultRegistry(c.BlueprintsDir)
		if c.ConfigFile != "" {
			log.Debug("loaded config file", "path", c.ConfigFile)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String(config.KeyDB, "", "Path to SQLite database file (overrides BLUEPRINT_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (default: blueprint.yaml in ., ~/.config/blueprint, /etc/blueprint)")
	rootCmd.PersistentFlags().String(config.KeyBlueprintsDir, "", "Directory of blueprint files that override the bundled ones")
	rootCmd.PersistentFlags().String(config.KeyLogLevel, "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String(config.KeyLogMode, "dev", "Log format: dev or prod")

	rootCmd.AddCommand(blueprintListCmd)
	rootCmd.AddCommand(blueprintValidateCmd)
	rootCmd.AddCommand(blueprintShowCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag or config (highest
// priority), then BLUEPRINT_DB env var, then the default XDG path.
func resolveDBPath() (string, error) {
	if cfg != nil && cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// loadBlueprint resolves a template id through the configured registry.
func loadBlueprint(templateID string) (*blueprint.Document, error) {
	doc, err := registry.Load(templateID)
	if err != nil {
		return nil, err
	}
	log.Debug("blueprint loaded", "template_id", templateID, "version", doc.Version)
	return doc, nil
}
