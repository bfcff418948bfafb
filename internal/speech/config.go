package speech

import (
	"log/slog"

	"github.com/example/kumou/internal/config"
)

// FromConfig builds the engine selected by cfg.Engine. sink may be nil.
func FromConfig(cfg config.TTSConfig, sink func([]byte) error, logger *slog.Logger) (Engine, error) {
	engine, err := config.NormalizeEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}

	switch engine {
	case config.EnginePocket:
		return NewPocket(PocketOptions{
			ExecutablePath: cfg.CLIPath,
			ConfigPath:     cfg.CLIConfigPath,
			Voice:          cfg.Voice,
			Quiet:          cfg.Quiet,
			Sink:           sink,
			Logger:         logger,
		}), nil
	default:
		return NewPaced(cfg.Rate), nil
	}
}
