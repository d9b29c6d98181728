// Package config defines all configuration for the arena daemon.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via ARENA_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Network string        `mapstructure:"network"` // target chain for DEX filtering (default "base")
	Store   StoreConfig   `mapstructure:"store"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Market  MarketConfig  `mapstructure:"market"`
	Rounds  RoundsConfig  `mapstructure:"rounds"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StoreConfig selects the KV backend and its failure policy.
//
// When URL (or Host) is empty the daemon runs entirely on the in-memory
// backend. Permissive mode downgrades external-store failures to
// empty/default results with the in-memory store transparently absorbing
// writes; strict mode surfaces StoreUnavailable.
type StoreConfig struct {
	URL        string `mapstructure:"url"` // redis://... , takes precedence over host/port
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	Permissive bool   `mapstructure:"permissive"`
}

// LLMConfig tunes the chat-completion client and its global pacing queue.
//
//   - MinInterval: minimum spacing between any two upstream requests.
//   - PostDelay:   sleep after every completed request.
//   - Backoff:     penalty sleep after an upstream 429 before the same job retries.
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	PostDelay   time.Duration `mapstructure:"post_delay"`
	Backoff     time.Duration `mapstructure:"backoff"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// MarketConfig tunes the price feed: cache TTL, DEX aggregator filtering,
// and the generic fallback price endpoint.
type MarketConfig struct {
	DEXBaseURL     string        `mapstructure:"dex_base_url"`
	SpotBaseURL    string        `mapstructure:"spot_base_url"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	MinLiquidity   float64       `mapstructure:"min_liquidity"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MockDriftPct   float64       `mapstructure:"mock_drift_pct"` // ± perturbation on mock prices
}

// RoundsConfig sets defaults applied to rounds that omit a setting.
type RoundsConfig struct {
	ExecutionInterval time.Duration `mapstructure:"execution_interval"`
	MaxPositionSize   float64       `mapstructure:"max_position_size"`
	TradingFee        float64       `mapstructure:"trading_fee"`
	ExpectedProfitPct float64       `mapstructure:"expected_profit_pct"`
	MaxConcurrency    int           `mapstructure:"max_concurrency"` // participant fan-out bound per tick
	AutoStartDelay    time.Duration `mapstructure:"auto_start_delay"`
}

// ServerConfig controls the HTTP command surface and the WS push hub.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: ARENA_LLM_API_KEY, ARENA_STORE_URL, ARENA_STORE_PASSWORD.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine: defaults + env carry a full configuration.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override sensitive fields from env
	if key := os.Getenv("ARENA_LLM_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if url := os.Getenv("ARENA_STORE_URL"); url != "" {
		cfg.Store.URL = url
	}
	if pass := os.Getenv("ARENA_STORE_PASSWORD"); pass != "" {
		cfg.Store.Password = pass
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network", "base")

	v.SetDefault("store.permissive", true)

	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.min_interval", 2*time.Second)
	v.SetDefault("llm.post_delay", time.Second)
	v.SetDefault("llm.backoff", 10*time.Second)
	v.SetDefault("llm.timeout", 20*time.Second)

	v.SetDefault("market.dex_base_url", "https://api.dexscreener.com")
	v.SetDefault("market.spot_base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("market.cache_ttl", 30*time.Second)
	v.SetDefault("market.min_liquidity", 10000.0)
	v.SetDefault("market.request_timeout", 10*time.Second)
	v.SetDefault("market.mock_drift_pct", 0.05)

	v.SetDefault("rounds.execution_interval", 15*time.Second)
	v.SetDefault("rounds.max_position_size", 0.3)
	v.SetDefault("rounds.trading_fee", 0.001)
	v.SetDefault("rounds.expected_profit_pct", 5.0)
	v.SetDefault("rounds.max_concurrency", 10)
	v.SetDefault("rounds.auto_start_delay", 5*time.Second)

	v.SetDefault("server.port", 8080)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.MinInterval <= 0 {
		return fmt.Errorf("llm.min_interval must be > 0")
	}
	if c.LLM.Backoff <= 0 {
		return fmt.Errorf("llm.backoff must be > 0")
	}
	if c.Market.CacheTTL <= 0 {
		return fmt.Errorf("market.cache_ttl must be > 0")
	}
	if c.Rounds.ExecutionInterval <= 0 {
		return fmt.Errorf("rounds.execution_interval must be > 0")
	}
	if c.Rounds.MaxPositionSize <= 0 || c.Rounds.MaxPositionSize > 1 {
		return fmt.Errorf("rounds.max_position_size must be in (0, 1]")
	}
	if c.Rounds.TradingFee < 0 || c.Rounds.TradingFee > 0.1 {
		return fmt.Errorf("rounds.trading_fee must be in [0, 0.1]")
	}
	if c.Rounds.MaxConcurrency <= 0 {
		return fmt.Errorf("rounds.max_concurrency must be > 0")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port")
	}
	return nil
}
