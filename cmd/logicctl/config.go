package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/nitrogenlogic/logicclient"
	"github.com/rs/zerolog"
)

// settings is the resolved CLI configuration.
type settings struct {
	Host           string
	Port           int
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	LogLevel       zerolog.Level
}

type fileConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	ConnectTimeout string `toml:"connect_timeout"`
	CommandTimeout string `toml:"command_timeout"`
	LogLevel       string `toml:"log_level"`
}

func defaultSettings() settings {
	return settings{
		Host:           "localhost",
		Port:           logicclient.DefaultPort,
		ConnectTimeout: logicclient.DefaultConnectTimeout,
		CommandTimeout: logicclient.DefaultCommandTimeout,
		LogLevel:       zerolog.WarnLevel,
	}
}

// loadSettings overlays the keys defined in the TOML file at path onto the
// defaults.
func loadSettings(path string) (settings, error) {
	cfg := defaultSettings()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load logicctl config: %w", err)
	}

	if meta.IsDefined("host") {
		if host := strings.TrimSpace(raw.Host); host != "" {
			cfg.Host = host
		}
	}

	if meta.IsDefined("port") {
		if raw.Port <= 0 || raw.Port > 65535 {
			return settings{}, fmt.Errorf("invalid port %d", raw.Port)
		}
		cfg.Port = raw.Port
	}

	if meta.IsDefined("connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectTimeout))
		if err != nil {
			return settings{}, fmt.Errorf("parse connect_timeout: %w", err)
		}
		cfg.ConnectTimeout = d
	}

	if meta.IsDefined("command_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.CommandTimeout))
		if err != nil {
			return settings{}, fmt.Errorf("parse command_timeout: %w", err)
		}
		cfg.CommandTimeout = d
	}

	if meta.IsDefined("log_level") {
		level, err := zerolog.ParseLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return settings{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

func (s settings) clientConfig(logger *zerolog.Logger) logicclient.Config {
	return logicclient.Config{
		Port:           s.Port,
		ConnectTimeout: s.ConnectTimeout,
		CommandTimeout: s.CommandTimeout,
		Logger:         logger,
	}
}
