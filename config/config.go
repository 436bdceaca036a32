package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger         `mapstructure:"logger"`
	DB        Database       `mapstructure:"database"`
	API       API            `mapstructure:"api"`
	Scheduler Scheduler      `mapstructure:"scheduler"`
	Analyzer  Analyzer       `mapstructure:"analyzer"`
	Yahoo     YahooFinance   `mapstructure:"yahoo_finance"`
	News      News           `mapstructure:"news"`
	Gemini    Gemini         `mapstructure:"gemini"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
	Cache     Cache          `mapstructure:"cache"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port int `mapstructure:"port"`
}

type Scheduler struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	TimeoutDuration time.Duration `mapstructure:"timeout_duration"`
}

type Analyzer struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	StageTimeout   time.Duration `mapstructure:"stage_timeout"`
}

type YahooFinance struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	CacheDuration       time.Duration `mapstructure:"cache_duration"`
}

type News struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxArticles   int           `mapstructure:"max_articles"`
	CacheDuration time.Duration `mapstructure:"cache_duration"`
}

type Gemini struct {
	APIKey              string        `mapstructure:"api_key"`
	BaseModel           string        `mapstructure:"base_model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int           `mapstructure:"max_token_per_minute"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Env-only configuration is a supported mode.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("scheduler.poll_interval", time.Minute)
	viper.SetDefault("scheduler.timeout_duration", 10*time.Minute)
	viper.SetDefault("analyzer.max_concurrency", 5)
	viper.SetDefault("analyzer.stage_timeout", 30*time.Second)
	viper.SetDefault("yahoo_finance.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	viper.SetDefault("yahoo_finance.timeout", 15*time.Second)
	viper.SetDefault("yahoo_finance.max_request_per_minute", 60)
	viper.SetDefault("yahoo_finance.cache_duration", 10*time.Minute)
	viper.SetDefault("news.base_url", "https://news.google.com/rss/search")
	viper.SetDefault("news.timeout", 15*time.Second)
	viper.SetDefault("news.max_articles", 25)
	viper.SetDefault("news.cache_duration", 30*time.Minute)
	viper.SetDefault("gemini.base_model", "gemini-2.0-flash")
	viper.SetDefault("gemini.timeout", 60*time.Second)
	viper.SetDefault("gemini.max_request_per_minute", 10)
	viper.SetDefault("gemini.max_token_per_minute", 250000)
	viper.SetDefault("cache.default_expiration", 10*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 15*time.Minute)
}
