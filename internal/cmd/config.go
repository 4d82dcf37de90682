package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Gateway struct {
		TickIntervalSec int `yaml:"tick_interval_sec"`
	} `yaml:"gateway"`
	Relay struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"relay"`
}

func defaultConfig() *Config {
	var config Config
	config.Server.Port = getEnv("PORT", "8080")
	config.Gateway.TickIntervalSec = getEnvAsInt("TICK_INTERVAL_SEC", 10)
	config.Relay.Enabled = getEnvAsBool("RELAY_ENABLED", false)
	config.Relay.URL = getEnv("NATS_URL", "nats://localhost:4222")
	return &config
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

func (c *Config) tickInterval() time.Duration {
	return time.Duration(c.Gateway.TickIntervalSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
