package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/example/kumou/internal/analysis"
	"github.com/example/kumou/internal/config"
	"github.com/example/kumou/internal/server"
	"github.com/example/kumou/internal/tokenizer"
	"github.com/spf13/cobra"
	"pkt.systems/version"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:     "kumou",
		Short:   "Japanese sentence analysis with spoken-token highlighting",
		Version: version.Current(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newSpeakCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newDialogueCmd())
	cmd.AddCommand(newVoiceCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := server.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func requireConfig() (config.Config, error) {
	if activeCfg.Server.ListenAddr == "" {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}
	return activeCfg, nil
}

// newAnalyzer builds the IPADIC tokenizer for the configured mode.
func newAnalyzer(cfg config.Config) (*analysis.Analyzer, error) {
	tok, err := tokenizer.NewIPADIC(cfg.Analysis.Mode)
	if err != nil {
		return nil, err
	}
	return analysis.New(tok), nil
}
