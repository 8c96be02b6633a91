package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"SwingScanner/internal/calculator"
	"SwingScanner/internal/strategy"
)

// DefaultInstruments is the universe scanned when none is configured.
var DefaultInstruments = []string{"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "INFY.NS", "SBIN.NS", "TATASTEEL.NS"}

// Config holds all application configuration.
type Config struct {
	Scan struct {
		Instruments    []string      `yaml:"instruments"`
		Lookback       string        `yaml:"lookback"`
		Interval       string        `yaml:"interval"`
		Rules          []string      `yaml:"rules"`
		Threshold      int           `yaml:"threshold"`
		ADXThreshold   float64       `yaml:"adx_threshold"`
		StopLossWindow int           `yaml:"stop_loss_window"`
		Concurrency    int           `yaml:"concurrency"`
		FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	} `yaml:"scan"`
	Indicators struct {
		LongMA     int `yaml:"long_ma"`
		MediumMA   int `yaml:"medium_ma"`
		ADXPeriod  int `yaml:"adx_period"`
		MACDFast   int `yaml:"macd_fast"`
		MACDSlow   int `yaml:"macd_slow"`
		MACDSignal int `yaml:"macd_signal"`
		VolumeMA   int `yaml:"volume_ma"`
	} `yaml:"indicators"`
	Provider struct {
		Name    string `yaml:"name"` // yahoo, rest, csv or mock
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		CSVDir  string `yaml:"csv_dir"`
		Breaker struct {
			Enabled             bool          `yaml:"enabled"`
			ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
			OpenTimeout         time.Duration `yaml:"open_timeout"`
		} `yaml:"breaker"`
	} `yaml:"provider"`
	Cache struct {
		SQLitePath string        `yaml:"sqlite_path"`
		TTL        time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		Polling  bool   `yaml:"polling"`
	} `yaml:"telegram"`
	Notify struct {
		WebhookURL string `yaml:"webhook_url"`
		Kafka      struct {
			Brokers []string `yaml:"brokers"`
			Topic   string   `yaml:"topic"`
		} `yaml:"kafka"`
	} `yaml:"notify"`
	Report struct {
		Header    string `yaml:"header"`
		NoSetups  string `yaml:"no_setups"`
		Currency  string `yaml:"currency"`
		SendEmpty bool   `yaml:"send_empty"`
	} `yaml:"report"`
	Chart struct {
		Dir string `yaml:"dir"`
	} `yaml:"chart"`
	Schedule struct {
		ScanCron   string `yaml:"scan_cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Proxy string `yaml:"proxy"`

	thresholdSet bool // scan.threshold given explicitly, even as 0
}

// Load reads an optional .env, the YAML file at path, then applies environment
// variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] load .env: %v", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		var explicit struct {
			Scan struct {
				Threshold *int `yaml:"threshold"`
			} `yaml:"scan"`
		}
		if err := yaml.Unmarshal(data, &explicit); err == nil && explicit.Scan.Threshold != nil {
			cfg.thresholdSet = true
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	// TELEGRAM_TOKEN is the historical name; TELEGRAM_BOT_TOKEN wins when both are set.
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SCAN_TICKERS"); v != "" {
		c.Scan.Instruments = splitList(v)
	}
	if v := os.Getenv("SCAN_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCAN_THRESHOLD: %w", err)
		}
		c.Scan.Threshold = n
		c.thresholdSet = true
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Cache.SQLitePath = v
	}
	if v := os.Getenv("CRON_SCAN"); v != "" {
		c.Schedule.ScanCron = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		c.Schedule.RunOnStart = v == "true"
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		c.Notify.WebhookURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Notify.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv("PROVIDER_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if len(c.Scan.Instruments) == 0 {
		c.Scan.Instruments = append([]string(nil), DefaultInstruments...)
	}
	if c.Scan.Lookback == "" {
		c.Scan.Lookback = "1y"
	}
	if c.Scan.Interval == "" {
		c.Scan.Interval = "1d"
	}
	if len(c.Scan.Rules) == 0 {
		c.Scan.Rules = strategy.DefaultPolicy().Rules
	}
	if !c.thresholdSet && c.Scan.Threshold == 0 {
		c.Scan.Threshold = strategy.DefaultPolicy().Threshold
	}
	if c.Scan.ADXThreshold == 0 {
		c.Scan.ADXThreshold = strategy.DefaultADXThreshold
	}
	if c.Scan.StopLossWindow == 0 {
		c.Scan.StopLossWindow = 5
	}
	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = 1
	}
	if c.Scan.FetchTimeout == 0 {
		c.Scan.FetchTimeout = 20 * time.Second
	}

	ind := &c.Indicators
	setDefault(&ind.LongMA, 200)
	setDefault(&ind.MediumMA, 50)
	setDefault(&ind.ADXPeriod, 14)
	setDefault(&ind.MACDFast, 12)
	setDefault(&ind.MACDSlow, 26)
	setDefault(&ind.MACDSignal, 9)
	setDefault(&ind.VolumeMA, 20)

	if c.Provider.Name == "" {
		c.Provider.Name = "yahoo"
		if c.Provider.BaseURL != "" {
			c.Provider.Name = "rest"
		}
	}
	if c.Provider.Breaker.ConsecutiveFailures == 0 {
		c.Provider.Breaker.ConsecutiveFailures = 3
	}
	if c.Provider.Breaker.OpenTimeout == 0 {
		c.Provider.Breaker.OpenTimeout = time.Minute
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 12 * time.Hour
	}
	if c.Notify.Kafka.Topic == "" {
		c.Notify.Kafka.Topic = "scan-reports"
	}
	if c.Schedule.ScanCron == "" {
		c.Schedule.ScanCron = "0 30 16 * * 1-5"
	}
}

// Validate checks that the scan can run. Missing credentials are not an error;
// the affected sinks simply stay silent.
func (c *Config) Validate() error {
	if len(c.Scan.Instruments) == 0 {
		return fmt.Errorf("scan.instruments must not be empty")
	}
	seen := make(map[string]bool, len(c.Scan.Instruments))
	for _, s := range c.Scan.Instruments {
		if s == "" {
			return fmt.Errorf("scan.instruments contains an empty symbol")
		}
		if seen[s] {
			return fmt.Errorf("scan.instruments lists %s twice", s)
		}
		seen[s] = true
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("scan.rules/threshold: %w", err)
	}
	if c.Scan.ADXThreshold < 0 {
		return fmt.Errorf("scan.adx_threshold must not be negative")
	}
	if c.Scan.StopLossWindow < 1 {
		return fmt.Errorf("scan.stop_loss_window must be positive")
	}
	if c.Scan.Concurrency < 1 {
		return fmt.Errorf("scan.concurrency must be positive")
	}
	if c.Scan.FetchTimeout <= 0 {
		return fmt.Errorf("scan.fetch_timeout must be positive")
	}
	ind := c.Indicators
	for name, v := range map[string]int{
		"long_ma": ind.LongMA, "medium_ma": ind.MediumMA, "adx_period": ind.ADXPeriod,
		"macd_fast": ind.MACDFast, "macd_slow": ind.MACDSlow, "macd_signal": ind.MACDSignal,
		"volume_ma": ind.VolumeMA,
	} {
		if v < 1 {
			return fmt.Errorf("indicators.%s must be positive", name)
		}
	}
	if ind.MACDFast >= ind.MACDSlow {
		return fmt.Errorf("indicators.macd_fast must be below macd_slow")
	}
	switch c.Provider.Name {
	case "yahoo", "mock":
	case "rest":
		if c.Provider.BaseURL == "" {
			return fmt.Errorf("provider.base_url is required for the rest provider")
		}
	case "csv":
		if c.Provider.CSVDir == "" {
			return fmt.Errorf("provider.csv_dir is required for the csv provider")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
	return nil
}

// Policy builds the scoring policy from the scan section.
func (c *Config) Policy() strategy.Policy {
	return strategy.Policy{
		Rules:        c.Scan.Rules,
		Threshold:    c.Scan.Threshold,
		ADXThreshold: c.Scan.ADXThreshold,
	}
}

// Params builds the indicator periods from the indicators section.
func (c *Config) Params() calculator.Params {
	ind := c.Indicators
	return calculator.Params{
		LongMA:     ind.LongMA,
		MediumMA:   ind.MediumMA,
		ADXPeriod:  ind.ADXPeriod,
		MACDFast:   ind.MACDFast,
		MACDSlow:   ind.MACDSlow,
		MACDSignal: ind.MACDSignal,
		VolumeMA:   ind.VolumeMA,
	}
}

func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
