package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the answer service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains the chat-completion provider settings
type LLMConfig struct {
	Type        string        `mapstructure:"type"` // openai-compatible only for now
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.APIKey) == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model is required")
	}
	return nil
}

// KnowledgeConfig contains the documentation knowledge endpoint settings
type KnowledgeConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Version    string        `mapstructure:"version"`
	PreVersion string        `mapstructure:"pre_version"`
	Datasets   string        `mapstructure:"datasets"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Retries    int           `mapstructure:"retries"`
	Backoff    time.Duration `mapstructure:"backoff"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

func (k KnowledgeConfig) Validate() error {
	if strings.TrimSpace(k.URL) == "" {
		return fmt.Errorf("knowledge.url is required")
	}
	return nil
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains the forum database connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a postgres connection string from the configured fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings. Redis is optional: when the
// host is empty the knowledge-context cache is disabled.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a Redis endpoint is configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Host) != "" }

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", r.Host, port)
}

// PipelineConfig contains the discussion-processing settings
type PipelineConfig struct {
	BotUserID       int64         `mapstructure:"bot_user_id"`
	MinAnswerLength int           `mapstructure:"min_answer_length"`
	InterItemDelay  time.Duration `mapstructure:"inter_item_delay"`
	SeenLimit       int           `mapstructure:"seen_limit"`
	ItemTimeout     time.Duration `mapstructure:"item_timeout"`
	LookupRetries   int           `mapstructure:"lookup_retries"`
	LookupDelay     time.Duration `mapstructure:"lookup_delay"`
}

func (p PipelineConfig) Validate() error {
	if p.BotUserID <= 0 {
		return fmt.Errorf("pipeline.bot_user_id is required")
	}
	return nil
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("server.address", ":3000")
	viper.SetDefault("llm.type", "openai")
	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 2000)
	viper.SetDefault("llm.timeout", 180*time.Second)
	viper.SetDefault("knowledge.timeout", 30*time.Second)
	viper.SetDefault("knowledge.retries", 2)
	viper.SetDefault("knowledge.backoff", time.Second)
	viper.SetDefault("knowledge.cache_ttl", time.Hour)
	viper.SetDefault("pipeline.bot_user_id", 4)
	viper.SetDefault("pipeline.min_answer_length", 10)
	viper.SetDefault("pipeline.inter_item_delay", 2*time.Second)
	viper.SetDefault("pipeline.seen_limit", 100)
	viper.SetDefault("pipeline.item_timeout", 5*time.Minute)
	viper.SetDefault("pipeline.lookup_retries", 5)
	viper.SetDefault("pipeline.lookup_delay", time.Second)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("ANSWERBOT")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.LLM.Validate(); err != nil {
		panic(err)
	}
	if err := config.Knowledge.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	if err := config.Pipeline.Validate(); err != nil {
		panic(err)
	}
	return &config
}
