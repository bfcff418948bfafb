package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Server   ServerConfig   `mapstructure:"server"`
	TTS      TTSConfig      `mapstructure:"tts"`
}

type PathsConfig struct {
	DialogueDir string `mapstructure:"dialogue_dir"`
}

type AnalysisConfig struct {
	Mode string `mapstructure:"mode"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	Workers         int    `mapstructure:"workers"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
}

type TTSConfig struct {
	Engine         string  `mapstructure:"engine"`
	Rate           float64 `mapstructure:"rate"`
	Delivery       string  `mapstructure:"delivery"`
	PollIntervalMS int     `mapstructure:"poll_interval_ms"`
	IdleTimeoutSec int     `mapstructure:"idle_timeout_sec"`
	CLIPath        string  `mapstructure:"cli_path"`
	CLIConfigPath  string  `mapstructure:"cli_config_path"`
	Voice          string  `mapstructure:"voice"`
	Quiet          bool    `mapstructure:"quiet"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// binding ties a config key to the flag that overrides it.
type binding struct {
	key  string
	flag string
}

var bindings = []binding{
	{"log_level", "log-level"},
	{"paths.dialogue_dir", "paths-dialogue-dir"},
	{"analysis.mode", "analysis-mode"},
	{"server.listen_addr", "server-listen-addr"},
	{"server.workers", "server-workers"},
	{"server.shutdown_timeout", "server-shutdown-timeout"},
	{"server.max_text_bytes", "server-max-text-bytes"},
	{"server.request_timeout", "server-request-timeout"},
	{"tts.engine", "tts-engine"},
	{"tts.rate", "tts-rate"},
	{"tts.delivery", "tts-delivery"},
	{"tts.poll_interval_ms", "tts-poll-interval-ms"},
	{"tts.idle_timeout_sec", "tts-idle-timeout-sec"},
	{"tts.cli_path", "tts-cli-path"},
	{"tts.cli_config_path", "tts-cli-config-path"},
	{"tts.voice", "tts-voice"},
	{"tts.quiet", "tts-quiet"},
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Paths: PathsConfig{
			DialogueDir: "data/dialogues",
		},
		Analysis: AnalysisConfig{
			Mode: "normal",
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         4,
			ShutdownTimeout: 30,
			MaxTextBytes:    4096,
			RequestTimeout:  60,
		},
		TTS: TTSConfig{
			Engine:         EnginePaced,
			Rate:           8,
			Delivery:       "push",
			PollIntervalMS: 50,
			IdleTimeoutSec: 30,
			CLIPath:        "",
			CLIConfigPath:  "",
			Voice:          "",
			Quiet:          true,
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("paths-dialogue-dir", defaults.Paths.DialogueDir, "Directory of dialogue corpus *.json files")
	fs.String("analysis-mode", defaults.Analysis.Mode, "Segmentation mode (normal|search|extended)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-workers", defaults.Server.Workers, "Max concurrent speak streams")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout in seconds")
	fs.Int("server-max-text-bytes", defaults.Server.MaxTextBytes, "Max sentence size in bytes")
	fs.Int("server-request-timeout", defaults.Server.RequestTimeout, "Per-request timeout in seconds")
	fs.String("tts-engine", defaults.TTS.Engine, "Speech engine (paced|pocket-tts)")
	fs.Float64("tts-rate", defaults.TTS.Rate, "Paced engine speaking rate in characters per second")
	fs.String("tts-delivery", defaults.TTS.Delivery, "Event delivery (push|poll)")
	fs.Int("tts-poll-interval-ms", defaults.TTS.PollIntervalMS, "Poll interval in milliseconds for poll delivery")
	fs.Int("tts-idle-timeout-sec", defaults.TTS.IdleTimeoutSec, "End an utterance after this many idle seconds (0 disables)")
	fs.String("tts-cli-path", defaults.TTS.CLIPath, "Path to pocket-tts executable")
	fs.String("tts-cli-config-path", defaults.TTS.CLIConfigPath, "Path to pocket-tts config file")
	fs.String("tts-voice", defaults.TTS.Voice, "pocket-tts voice name or .safetensors path")
	fs.Bool("tts-quiet", defaults.TTS.Quiet, "Pass --quiet to pocket-tts generate")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("KUMOU")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("kumou")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("paths.dialogue_dir", c.Paths.DialogueDir)
	v.SetDefault("analysis.mode", c.Analysis.Mode)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("tts.engine", c.TTS.Engine)
	v.SetDefault("tts.rate", c.TTS.Rate)
	v.SetDefault("tts.delivery", c.TTS.Delivery)
	v.SetDefault("tts.poll_interval_ms", c.TTS.PollIntervalMS)
	v.SetDefault("tts.idle_timeout_sec", c.TTS.IdleTimeoutSec)
	v.SetDefault("tts.cli_path", c.TTS.CLIPath)
	v.SetDefault("tts.cli_config_path", c.TTS.CLIConfigPath)
	v.SetDefault("tts.voice", c.TTS.Voice)
	v.SetDefault("tts.quiet", c.TTS.Quiet)
}

// bindFlags binds every registered flag present in fs to its config key.
// A flag only overrides the file and environment when it was set.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, b := range bindings {
		f := fs.Lookup(b.flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(b.key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", b.flag, err)
		}
	}
	return nil
}
