package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the server process.
type Config struct {
	// Identity
	ServerName string `yaml:"server_name"`
	Location   string `yaml:"location"`

	// Network
	IP                    string `yaml:"ip"`
	GamePort              int    `yaml:"game_port"`
	StatusPort            int    `yaml:"status_port"`
	HTTPPort              int    `yaml:"http_port"`
	BindOnlyGlobalAddress bool   `yaml:"bind_only_global_address"`

	// Admission
	MaxPlayers          int `yaml:"max_players"`
	MaxPacketsPerSecond int `yaml:"max_packets_per_second"`

	// Status service
	StatusMinRequestIntervalMS int `yaml:"status_min_request_interval"`

	// Login policy
	AllowClones         bool `yaml:"allow_clones"`
	OnePlayerPerAccount bool `yaml:"one_player_per_account"`
	ReplaceKickOnLogin  bool `yaml:"replace_kick_on_login"`
	FreePremium         bool `yaml:"free_premium"`

	// Crypto
	RSAKeyFile string `yaml:"rsa_key_file"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// StatusMinRequestInterval returns the status rate-limit window.
func (c Config) StatusMinRequestInterval() time.Duration {
	return time.Duration(c.StatusMinRequestIntervalMS) * time.Millisecond
}

// BindAddress returns the listen address for the given port. When
// bind_only_global_address is false the services bind to any-v6 with
// v6-only off, accepting both stacks.
func (c Config) BindAddress(port int) string {
	if c.BindOnlyGlobalAddress {
		return fmt.Sprintf("%s:%d", c.IP, port)
	}
	return fmt.Sprintf(":%d", port)
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		ServerName:                 "Forgotten",
		Location:                   "BRA",
		IP:                         "127.0.0.1",
		GamePort:                   7172,
		StatusPort:                 7171,
		HTTPPort:                   8080,
		BindOnlyGlobalAddress:      false,
		MaxPlayers:                 1000,
		MaxPacketsPerSecond:        25,
		StatusMinRequestIntervalMS: 5000,
		AllowClones:                false,
		OnePlayerPerAccount:        true,
		ReplaceKickOnLogin:         true,
		FreePremium:                false,
		RSAKeyFile:                 "key.pem",
		LogLevel:                   "info",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "otgate",
			Password: "otgate",
			DBName:   "otgate",
			SSLMode:  "disable",
		},
	}
}

// Load loads config from a YAML file. If the file doesn't exist, returns
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
