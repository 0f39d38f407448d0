package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/shadegraph/backend/recorder"
)

const envPrefix = "SHADEGRAPH"

// config holds the merged flag, environment and config file settings.
type config struct {
	Definitions string
	Selector    string
	Backend     string
	Workers     int
	LogLevel    string
	DumpDir     string
}

// loadConfig merges settings for cmd. Flags win over the environment, the
// environment over the config file.
func loadConfig(cmd *cobra.Command) (*config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("selector", "rpr")
	v.SetDefault("backend", recorder.Name)
	v.SetDefault("log-level", "info")

	// The renderer's own variables are honored for compatibility.
	_ = v.BindEnv("definitions", envPrefix+"_DEFINITIONS", "RPR")
	_ = v.BindEnv("selector", envPrefix+"_SELECTOR", "RPRUSD_MATERIAL_NETWORK_SELECTOR")

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	cfg := &config{
		Definitions: v.GetString("definitions"),
		Selector:    v.GetString("selector"),
		Backend:     v.GetString("backend"),
		Workers:     v.GetInt("workers"),
		LogLevel:    v.GetString("log-level"),
		DumpDir:     v.GetString("dump-dir"),
	}
	switch {
	case cfg.Workers == 0:
		cfg.Workers = runtime.GOMAXPROCS(0)
	case cfg.Workers < 0:
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	return cfg, nil
}

// newLogger returns a slog logger backed by a charmbracelet handler.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: lvl <= log.DebugLevel,
	})
	return slog.New(handler), nil
}
