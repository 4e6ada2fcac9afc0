package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"partforge/internal/assistant"
	"partforge/internal/config"
	"partforge/internal/draft"
	"partforge/internal/logging"
	"partforge/internal/store"
)

var (
	// Global flags
	verbose bool
	dataDir string
	apiKey  string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "partforge",
	Short: "partforge - conversational hardware drafting engine",
	Long: `partforge drafts hardware builds through conversation.

Describe what you want to build and the assistant maintains a bill of
materials for you: parts from the catalog, inferred custom parts, port
compatibility checks, cost totals, design audits, and assembly plans.

Run without arguments to start the interactive drafting chat.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

// app bundles the wired components behind every command.
type app struct {
	cfg     *config.Config
	store   *store.ProjectStore
	mirror  *store.Mirror
	drafter *draft.Drafter
}

// newApp loads config and wires storage and the assistant. Commands that
// never talk to the assistant still get a working drafter; assistant calls
// fail with a configuration error instead of a nil panic.
func newApp() (*app, error) {
	dir := dataDir
	if dir == "" {
		dir = config.DefaultDataDir()
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.Assistant.APIKey = apiKey
	}

	if err := logging.Initialize(cfg.Storage.DataDir, logging.Options{
		DebugMode:  cfg.Logging.DebugMode || verbose,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	backend, err := store.NewFileBackend(filepath.Join(cfg.Storage.DataDir, "projects"), cfg.Storage.QuotaBytes)
	if err != nil {
		return nil, err
	}

	mirror, err := store.NewMirror(cfg.Storage.MirrorPath)
	if err != nil {
		logger.Warn("transcript mirror unavailable", zap.Error(err))
		mirror = nil
	}

	owner := os.Getenv("USER")
	if owner == "" {
		owner = "local"
	}
	projects, err := store.NewProjectStore(backend, mirror, owner)
	if err != nil {
		return nil, err
	}

	var images *assistant.ImageEngine
	if cfg.Assistant.APIKey != "" {
		images, err = assistant.NewImageEngine(cfg.Assistant.APIKey, cfg.Assistant.ImageModel)
		if err != nil {
			logger.Warn("image engine unavailable", zap.Error(err))
		}
	}
	client := assistant.NewGeminiClient(cfg.Assistant, cfg.AssistantTimeout(), images)

	return &app{
		cfg:     cfg,
		store:   projects,
		mirror:  mirror,
		drafter: draft.NewDrafter(projects, client),
	}, nil
}

func (a *app) close() {
	if a.mirror != nil {
		_ = a.mirror.Close()
	}
}

func requestTimeout(cfg *config.Config) time.Duration {
	return cfg.AssistantTimeout()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default ~/.partforge)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Assistant API key (default $GEMINI_API_KEY)")

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsNewCmd)
	projectsCmd.AddCommand(projectsOpenCmd)
	projectsCmd.AddCommand(projectsRenameCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)

	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(bomCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(sourceCmd)
	rootCmd.AddCommand(briefCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
