package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ORDERBOOK"

// DebugMode turns on verbose logging of the stream and maintainer internals.
var DebugMode = false

var (
	ErrEmptySymbol      = errors.New("config: symbol is empty")
	ErrEmptyEndpoint    = errors.New("config: endpoint is empty")
	ErrInvalidDwell     = errors.New("config: highlight dwell must be positive")
	ErrInvalidDepth     = errors.New("config: visible depth must be positive")
	ErrInvalidLogFormat = errors.New("config: log format must be text or json")
	ErrInvalidHandshake = errors.New("config: handshake timeout must be positive")
)

type Config struct {
	Symbol            string        `mapstructure:"symbol"`
	OrderBookEndpoint string        `mapstructure:"orderbook_endpoint"`
	TradeEndpoint     string        `mapstructure:"trade_endpoint"`
	HighlightDwell    time.Duration `mapstructure:"highlight_dwell"`
	VisibleDepth      int           `mapstructure:"visible_depth"`
	RpcAddr           string        `mapstructure:"rpc_addr"`
	MetricsAddr       string        `mapstructure:"metrics_addr"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"`
	Debug             bool          `mapstructure:"debug"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
	KeepAliveTimeout  time.Duration `mapstructure:"keepalive_timeout"`
}

var defaults = map[string]any{
	"symbol":             "BTCPFC",
	"orderbook_endpoint": "wss://ws.btse.com/ws/oss/futures",
	"trade_endpoint":     "wss://ws.btse.com/ws/futures",
	"highlight_dwell":    1500 * time.Millisecond,
	"visible_depth":      8,
	"rpc_addr":           ":50051",
	"metrics_addr":       ":8080",
	"log_level":          "info",
	"log_format":         "text",
	"debug":              false,
	"handshake_timeout":  5 * time.Second,
	"keepalive_timeout":  9 * time.Minute,
}

// Load reads .env (when present), then an optional YAML file named by
// ORDERBOOK_CONFIG, then ORDERBOOK_* environment variables. Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	conf.Symbol = strings.TrimSpace(conf.Symbol)
	conf.LogFormat = strings.ToLower(conf.LogFormat)

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	DebugMode = conf.Debug
	return &conf, nil
}

func (c *Config) Validate() error {
	if c.Symbol == "" {
		return ErrEmptySymbol
	}
	if c.OrderBookEndpoint == "" {
		return fmt.Errorf("%w: orderbook_endpoint", ErrEmptyEndpoint)
	}
	if c.TradeEndpoint == "" {
		return fmt.Errorf("%w: trade_endpoint", ErrEmptyEndpoint)
	}
	if c.HighlightDwell <= 0 {
		return ErrInvalidDwell
	}
	if c.VisibleDepth <= 0 {
		return ErrInvalidDepth
	}
	if c.HandshakeTimeout <= 0 {
		return ErrInvalidHandshake
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}
