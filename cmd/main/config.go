package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

const configPath = "./config.json"

// ServerConfig holds the configuration for the HTTP API server.
type ServerConfig struct {
	ApiAddr           string `json:"api_addr"`
	LogLevel          string `json:"log_level"`
	DataDir           string `json:"data_dir"`
	StatsDatabasePath string `json:"stats_database_path"`
	DefaultOrder      int    `json:"default_order"`
	MaxSequenceLength int    `json:"max_sequence_length"`
	MaxCorpusBytes    int64  `json:"max_corpus_bytes"`
}

// Config is the top-level configuration struct.
type Config struct {
	Server *ServerConfig `json:"server_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:           ":7287",
		LogLevel:          "info",
		DataDir:           "./data",
		StatsDatabasePath: "./data/textchain_stats.db?_journal_mode=WAL&_busy_timeout=5000",
		DefaultOrder:      2,
		MaxSequenceLength: 1000,
		MaxCorpusBytes:    8 << 20,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := &Config{
		Server: DefaultServerConfig(),
	}

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The server can still run with defaults, so just warn.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig writes the configuration to disk atomically.
func SaveConfig(path string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
