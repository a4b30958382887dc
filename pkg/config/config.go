package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Verifier   VerifierConfig   `mapstructure:"verifier"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	GinMode string `mapstructure:"gin_mode"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type GeminiConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type VerifierConfig struct {
	// Provider is "openai" or "gemini".
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type EscalationConfig struct {
	Workers       int           `mapstructure:"workers"`
	QueueSize     int           `mapstructure:"queue_size"`
	MaxOverflow   int           `mapstructure:"max_overflow"`
	TaskTimeout   time.Duration `mapstructure:"task_timeout"`
	ReviewBaseURL string        `mapstructure:"review_base_url"`
}

type AlertsConfig struct {
	// Provider is "telegram", "smtp" or "log".
	Provider string         `mapstructure:"provider"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type IngestConfig struct {
	TestRoomPrefix string `mapstructure:"test_room_prefix"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Driver:   "postgres",
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.gin_mode", "release")

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "safeguard.db")

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 300)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 300)

	v.SetDefault("verifier.provider", "openai")
	v.SetDefault("verifier.timeout", 15*time.Second)

	v.SetDefault("escalation.workers", 4)
	v.SetDefault("escalation.queue_size", 256)
	v.SetDefault("escalation.max_overflow", 1024)
	v.SetDefault("escalation.task_timeout", 45*time.Second)
	v.SetDefault("escalation.review_base_url", "http://localhost:3000")

	v.SetDefault("alerts.provider", "log")
	v.SetDefault("alerts.smtp.port", 587)

	v.SetDefault("ingest.test_room_prefix", "teacher_test_")
}

// LoadConfig reads path when it is non-empty, then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Alerts.Telegram.Token = token
	}
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if apiKey := v.GetString("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Verifier.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown verifier provider %q", c.Verifier.Provider)
	}
	switch c.Alerts.Provider {
	case "log":
	case "telegram":
		if c.Alerts.Telegram.Token == "" || c.Alerts.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram alerts need a token and chat_id")
		}
	case "smtp":
		if c.Alerts.SMTP.Host == "" || c.Alerts.SMTP.From == "" {
			return fmt.Errorf("smtp alerts need a host and from address")
		}
	default:
		return fmt.Errorf("unknown alerts provider %q", c.Alerts.Provider)
	}
	if c.Escalation.Workers <= 0 {
		return fmt.Errorf("escalation.workers must be positive")
	}
	return nil
}
