// Package main provides the chunksplit CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chunksplit/chunk"
	"chunksplit/internal/cache"
	"chunksplit/internal/config"
	"chunksplit/internal/logger"
	"chunksplit/modulematch"
)

// Version is the current chunksplit CLI version
var Version = "0.1.0"

var (
	cfg *config.Config
	log = logger.Nop()

	configPath   string
	modeFlag     string
	rulesFlag    string
	logLevelFlag string
	noCacheFlag  bool
)

var rootCmd = &cobra.Command{
	Use:     "chunksplit",
	Short:   "chunksplit - deterministic chunk assignment for production builds",
	Long:    `chunksplit maps bundler module ids to named output chunks, plans whole builds, and compares chunk manifests between builds to measure cache invalidation.`,
	Version: Version,

	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Close()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default: ./chunksplit.yaml if present)")
	pf.StringVar(&modeFlag, "mode", "", "Build mode: production or development")
	pf.StringVar(&rulesFlag, "rules", "", "Override rules file")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level: trace, debug, info, warn, error, off")
	pf.BoolVar(&noCacheFlag, "no-cache", false, "Bypass the classification cache")

	rootCmd.AddCommand(classifyCmd, planCmd, diffCmd, rulesCmd, nameCmd, cacheCmd)
}

// setup loads configuration and applies flag overrides. Flags win over env,
// env over the config file.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if modeFlag != "" {
		loaded.Mode = modeFlag
	}
	if rulesFlag != "" {
		loaded.Rules = rulesFlag
	}
	if logLevelFlag != "" {
		loaded.Logging.Level = logLevelFlag
	}
	cfg = loaded

	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.Logging.Path,
	}, cmd.ErrOrStderr())

	log.Debug().
		Str("mode", cfg.Mode).
		Str("rules", cfg.Rules).
		Bool("cache", cfg.Cache.Enabled && !noCacheFlag).
		Msg("configuration loaded")
	return nil
}

func buildMode() chunk.Mode {
	return chunk.ParseMode(cfg.Mode)
}

// loadClassifier builds a classifier from the configured override rules.
// A missing rules file means no overrides.
func loadClassifier() (*chunk.Classifier, error) {
	overrides, err := modulematch.LoadOrEmpty(cfg.Rules)
	if err != nil {
		return nil, err
	}
	c := chunk.New(overrides)
	log.Debug().
		Int("overrides", overrides.Len()).
		Str("digest", c.Digest()[:12]).
		Msg("classifier ready")
	return c, nil
}

// openCache returns the classification cache, or nil when disabled.
func openCache() (*cache.Cache, error) {
	if !cfg.Cache.Enabled || noCacheFlag {
		return nil, nil
	}
	store, err := cache.Open(cfg.Cache.Dir)
	if err != nil {
		return nil, err
	}
	cl := log.WithComponent("cache")
	cl.Debug().Str("path", store.Path()).Msg("cache opened")
	return store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
