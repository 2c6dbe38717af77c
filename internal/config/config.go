package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Catalog struct {
		// File points at a static JSON project list, used when Postgres is
		// not configured.
		File string `yaml:"file"`
		TTL  string `yaml:"ttl"`
	} `yaml:"catalog"`
	Grader struct {
		Endpoint string `yaml:"endpoint"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"grader"`
	Blobs struct {
		// BaseURL is the public prefix under which stored screenshots are served.
		BaseURL string `yaml:"baseUrl"`
	} `yaml:"blobs"`
	Chat struct {
		// HistoryLimit caps the snapshot pushed to subscribers; 0 means unlimited.
		HistoryLimit int `yaml:"historyLimit"`
	} `yaml:"chat"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
