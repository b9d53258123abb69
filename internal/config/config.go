package config

import (
	"fmt"
	"os"
	"time"

	"freelanceos/pkg/config"
)

type UploadConfig struct {
	Dir      string `yaml:"dir"`
	BaseURL  string `yaml:"base_url"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type AssistantConfig struct {
	WhatsAppNumber string `yaml:"whatsapp_number"`
	DefaultAgent   string `yaml:"default_agent"`
}

type WorkerConfig struct {
	OutboxInterval       time.Duration `yaml:"outbox_interval"`
	OutboxBatchSize      int           `yaml:"outbox_batch_size"`
	OutboxMaxRetries     int           `yaml:"outbox_max_retries"`
	InvoiceCheckInterval time.Duration `yaml:"invoice_check_interval"`
	DedupTTL             time.Duration `yaml:"dedup_ttl"`
}

type Config struct {
	Server    config.ServerConfig `yaml:"server"`
	DB        config.DBConfig     `yaml:"db"`
	Redis     config.RedisConfig  `yaml:"redis"`
	MQ        config.MQConfig     `yaml:"mq"`
	JWT       config.JWTConfig    `yaml:"jwt"`
	LLM       config.LLMConfig    `yaml:"llm"`
	Otel      config.OtelConfig   `yaml:"otel"`
	Upload    UploadConfig        `yaml:"upload"`
	Assistant AssistantConfig     `yaml:"assistant"`
	Worker    WorkerConfig        `yaml:"worker"`
}

// Load reads config/<CONFIG_ENV>.yaml on top of base.yaml, then applies env overrides.
func Load() (*Config, error) {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := config.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideLLMFromEnv(&cfg.LLM)
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		cfg.Upload.Dir = dir
	}
	if number := os.Getenv("WHATSAPP_NUMBER"); number != "" {
		cfg.Assistant.WhatsAppNumber = number
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.JWT.TTL <= 0 {
		c.JWT.TTL = 24 * time.Hour
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "./uploads"
	}
	if c.Upload.BaseURL == "" {
		c.Upload.BaseURL = "/files"
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = 20 << 20
	}
	if c.Assistant.DefaultAgent == "" {
		c.Assistant.DefaultAgent = "business_assistant"
	}
	if c.Worker.OutboxInterval <= 0 {
		c.Worker.OutboxInterval = time.Second
	}
	if c.Worker.OutboxBatchSize <= 0 {
		c.Worker.OutboxBatchSize = 100
	}
	if c.Worker.OutboxMaxRetries <= 0 {
		c.Worker.OutboxMaxRetries = 5
	}
	if c.Worker.InvoiceCheckInterval <= 0 {
		c.Worker.InvoiceCheckInterval = time.Hour
	}
	if c.Worker.DedupTTL <= 0 {
		c.Worker.DedupTTL = 24 * time.Hour
	}
}

// Validate rejects configurations the binaries cannot start with.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" || c.JWT.Secret == "${JWT_SECRET}" {
		return fmt.Errorf("jwt.secret is not set")
	}
	switch c.LLM.Provider {
	case "", "mock", "agent", "gemini":
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	return nil
}
