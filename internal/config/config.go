package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the triage engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Evidence  EvidenceConfig  `yaml:"evidence"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Generator GeneratorConfig `yaml:"generator"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// EvidenceConfig configures access to the evidence lookup service. When
// BaseURL is empty the engine falls back to the seeded in-memory dataset.
type EvidenceConfig struct {
	BaseURL       string        `yaml:"baseURL"`
	IncidentsPath string        `yaml:"incidentsPath"`
	PolicyPath    string        `yaml:"policyPath"`
	InfraPath     string        `yaml:"infraPath"`
	IntelPath     string        `yaml:"intelPath"`
	Timeout       time.Duration `yaml:"timeout"`
	Seed          int64         `yaml:"seed"`
}

// StoreConfig controls where finished analyses are kept and broadcast.
type StoreConfig struct {
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB"`
	Channel       string        `yaml:"channel"`
	MaxAnalyses   int           `yaml:"maxAnalyses"`
	DialTimeout   time.Duration `yaml:"dialTimeout"`
}

// CacheConfig controls read-through caching of evidence lookups.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	IncidentsTTL time.Duration `yaml:"incidentsTTL"`
	PolicyTTL    time.Duration `yaml:"policyTTL"`
}

// PipelineConfig tunes the analysis pipeline.
type PipelineConfig struct {
	EvaluatorTimeout   time.Duration `yaml:"evaluatorTimeout"`
	LowConfidenceMark  float64       `yaml:"lowConfidenceMark"`
	InfraLookback      time.Duration `yaml:"infraLookback"`
	IncidentWindowDays int           `yaml:"incidentWindowDays"`
}

// GeneratorConfig controls the demo signal generator.
type GeneratorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Seed     int64         `yaml:"seed"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TRIAGE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Evidence: EvidenceConfig{
			IncidentsPath: "/api/v1/evidence/incidents",
			PolicyPath:    "/api/v1/evidence/policy",
			InfraPath:     "/api/v1/evidence/infra",
			IntelPath:     "/api/v1/evidence/intel",
			Timeout:       5 * time.Second,
			Seed:          1,
		},
		Store: StoreConfig{
			Channel:     "triage:analyses",
			MaxAnalyses: 200,
			DialTimeout: 2 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:      false,
			IncidentsTTL: 2 * time.Minute,
			PolicyTTL:    5 * time.Minute,
		},
		Pipeline: PipelineConfig{
			EvaluatorTimeout:   5 * time.Second,
			LowConfidenceMark:  0.35,
			InfraLookback:      time.Hour,
			IncidentWindowDays: 30,
		},
		Generator: GeneratorConfig{
			Enabled:  false,
			Interval: 30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func (c *Config) validate() error {
	if c.Pipeline.EvaluatorTimeout <= 0 {
		return fmt.Errorf("pipeline.evaluatorTimeout must be positive")
	}
	if c.Pipeline.LowConfidenceMark < 0 || c.Pipeline.LowConfidenceMark > 1 {
		return fmt.Errorf("pipeline.lowConfidenceMark must be within [0,1]")
	}
	if c.Store.MaxAnalyses <= 0 {
		return fmt.Errorf("store.maxAnalyses must be positive")
	}
	if c.Generator.Enabled && c.Generator.Interval <= 0 {
		return fmt.Errorf("generator.interval must be positive when the generator is enabled")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRIAGE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("TRIAGE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("TRIAGE_EVIDENCE_BASE_URL"); v != "" {
		cfg.Evidence.BaseURL = v
	}
	if v := os.Getenv("TRIAGE_EVIDENCE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Evidence.Timeout = d
		}
	}
	if v := os.Getenv("TRIAGE_REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("TRIAGE_REDIS_PASSWORD"); v != "" {
		cfg.Store.RedisPassword = v
	}
	if v := os.Getenv("TRIAGE_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Store.RedisDB = db
		}
	}
	if v := os.Getenv("TRIAGE_STORE_CHANNEL"); v != "" {
		cfg.Store.Channel = v
	}
	if v := os.Getenv("TRIAGE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("TRIAGE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("TRIAGE_EVALUATOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.EvaluatorTimeout = d
		}
	}
	if v := os.Getenv("TRIAGE_GENERATOR_ENABLED"); v != "" {
		cfg.Generator.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("TRIAGE_GENERATOR_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Generator.Interval = d
		}
	}
	if v := os.Getenv("TRIAGE_GENERATOR_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Generator.Seed = seed
		}
	}
	if v := os.Getenv("TRIAGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TRIAGE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
