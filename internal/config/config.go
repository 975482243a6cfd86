package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"NewsBroadcaster/internal/gateway"
)

const (
	defaultTimezone = "Asia/Manila"
	defaultHTTPAddr = ":8080"

	configPathEnv      = "NEWS_BROADCASTER_CONFIG"
	logLevelEnv        = "LOG_LEVEL"
	databaseDriverEnv  = "DATABASE_DRIVER"
	databaseDSNEnv     = "DATABASE_DSN"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv     = "OPENAI_MODEL"
	openAIBaseURLEnv   = "OPENAI_BASE_URL"
	defaultGatewayEnv  = "SMS_GATEWAY"
	iprogTokenEnv      = "IPROG_API_TOKEN"
	semaphoreAPIKeyEnv = "SEMAPHORE_API_KEY"
	semaphoreSenderEnv = "SEMAPHORE_SENDER"
	modemPortEnv       = "SIM800C_PORT"
	modemBaudRateEnv   = "SIM800C_BAUD_RATE"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	infobipBaseURLEnv  = "INFOBIP_BASE_URL"
	infobipAPIKeyEnv   = "INFOBIP_API_KEY"
	httpAddrEnv        = "HTTP_ADDR"
	translationLangEnv = "TRANSLATION_LANGUAGE"
	qualityEnabledEnv  = "QUALITY_ENABLED"
	sendDelayEnv       = "SEND_DELAY"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	LLM           LLMConfig          `yaml:"llm"`
	Gateways      GatewaysConfig     `yaml:"gateways"`
	Throttle      ThrottleConfig     `yaml:"throttle"`
	Quality       QualityConfig      `yaml:"quality"`
	Notifications NotificationConfig `yaml:"notifications"`
	Status        StatusConfig       `yaml:"status"`
	HTTP          HTTPConfig         `yaml:"http"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Schedules     []ScheduleConfig   `yaml:"schedules"`

	// Path is the file the configuration was read from, empty for defaults only.
	Path string `yaml:"-"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	// Format is text, json or console.
	Format string `yaml:"format"`
}

// DatabaseConfig selects the SQL backend holding news, subscribers and sms_logs.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
	Migrate      bool   `yaml:"migrate"`
}

// LLMConfig defines how to contact the chat completions API.
type LLMConfig struct {
	BaseURL   string        `yaml:"baseUrl"`
	APIKey    string        `yaml:"apiKey"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int64         `yaml:"maxTokens"`
	Language  string        `yaml:"language"`
}

// GatewaysConfig groups the three delivery channels.
type GatewaysConfig struct {
	Default   string          `yaml:"default"`
	IPROG     IPROGConfig     `yaml:"iprog"`
	Semaphore SemaphoreConfig `yaml:"semaphore"`
	SIM800C   ModemConfig     `yaml:"sim800c"`
}

type IPROGConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIToken string        `yaml:"apiToken"`
	Timeout  time.Duration `yaml:"timeout"`
}

type SemaphoreConfig struct {
	Endpoint         string        `yaml:"endpoint"`
	PriorityEndpoint string        `yaml:"priorityEndpoint"`
	APIKey           string        `yaml:"apiKey"`
	SenderName       string        `yaml:"senderName"`
	Priority         bool          `yaml:"priority"`
	Timeout          time.Duration `yaml:"timeout"`
}

// ModemConfig describes the serial-attached SIM800C bridge.
type ModemConfig struct {
	Port             string        `yaml:"port"`
	BaudRate         int           `yaml:"baudRate"`
	PollInterval     time.Duration `yaml:"pollInterval"`
	Timeout          time.Duration `yaml:"timeout"`
	TimeoutIsFailure bool          `yaml:"timeoutIsFailure"`
}

// ThrottleConfig paces consecutive sends. A positive RatePerSecond switches
// from the fixed pause to a token bucket.
type ThrottleConfig struct {
	Delay         time.Duration `yaml:"delay"`
	RatePerSecond float64       `yaml:"ratePerSecond"`
	Burst         int           `yaml:"burst"`
}

type QualityConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NotificationConfig encapsulates outbound operator channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIBase  string `yaml:"apiBase"`
}

// StatusConfig configures the diagnostic delivery status lookup.
type StatusConfig struct {
	Infobip InfobipConfig `yaml:"infobip"`
}

type InfobipConfig struct {
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// SchedulerConfig defines the timezone cron expressions are evaluated in.
type SchedulerConfig struct {
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}

// ScheduleConfig is one recurring announcement.
type ScheduleConfig struct {
	Name       string  `yaml:"name"`
	Cron       string  `yaml:"cron"`
	Message    string  `yaml:"message"`
	Gateway    string  `yaml:"gateway"`
	Recipients []int64 `yaml:"recipients"`
}

// Load reads the optional .env file, the YAML configuration and environment
// overrides, in that order. path wins over NEWS_BROADCASTER_CONFIG.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	cfg := defaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := Parse(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Path = path
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes raw YAML on top of cfg; keys missing from raw keep their values.
func Parse(raw []byte, cfg *Config) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	return yaml.Unmarshal(raw, cfg)
}

// DefaultGateway returns the configured default gateway kind.
func (c Config) DefaultGateway() (gateway.Kind, error) {
	return gateway.ParseKind(c.Gateways.Default)
}

// Validate reports every setting that cannot work.
func (c Config) Validate() error {
	var errs []error

	if _, err := c.DefaultGateway(); err != nil {
		errs = append(errs, fmt.Errorf("gateways.default: %w", err))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}
	if c.Throttle.Delay < 0 {
		errs = append(errs, errors.New("throttle.delay: must not be negative"))
	}
	if c.Throttle.RatePerSecond < 0 {
		errs = append(errs, errors.New("throttle.ratePerSecond: must not be negative"))
	}

	seen := map[string]bool{}
	for i, s := range c.Schedules {
		name := s.Name
		if name == "" {
			name = strconv.Itoa(i)
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("schedules[%s]: duplicate name", name))
		}
		seen[name] = true
		if strings.TrimSpace(s.Cron) == "" {
			errs = append(errs, fmt.Errorf("schedules[%s]: cron is empty", name))
		}
		if strings.TrimSpace(s.Message) == "" {
			errs = append(errs, fmt.Errorf("schedules[%s]: message is empty", name))
		}
		if s.Gateway != "" {
			if _, err := gateway.ParseKind(s.Gateway); err != nil {
				errs = append(errs, fmt.Errorf("schedules[%s]: %w", name, err))
			}
		}
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(logLevelEnv, &c.Logging.Level)
	setString(databaseDriverEnv, &c.Database.Driver)
	setString(databaseDSNEnv, &c.Database.DSN)
	setString(openAIAPIKeyEnv, &c.LLM.APIKey)
	setString(openAIModelEnv, &c.LLM.Model)
	setString(openAIBaseURLEnv, &c.LLM.BaseURL)
	setString(translationLangEnv, &c.LLM.Language)
	setString(defaultGatewayEnv, &c.Gateways.Default)
	setString(iprogTokenEnv, &c.Gateways.IPROG.APIToken)
	setString(semaphoreAPIKeyEnv, &c.Gateways.Semaphore.APIKey)
	setString(semaphoreSenderEnv, &c.Gateways.Semaphore.SenderName)
	setString(modemPortEnv, &c.Gateways.SIM800C.Port)
	setString(telegramTokenEnv, &c.Notifications.Telegram.BotToken)
	setString(telegramChatIDEnv, &c.Notifications.Telegram.ChatID)
	setString(infobipBaseURLEnv, &c.Status.Infobip.BaseURL)
	setString(infobipAPIKeyEnv, &c.Status.Infobip.APIKey)
	setString(httpAddrEnv, &c.HTTP.Addr)

	if v := os.Getenv(modemBaudRateEnv); v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", modemBaudRateEnv, err)
		}
		c.Gateways.SIM800C.BaudRate = baud
	}
	if v := os.Getenv(qualityEnabledEnv); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", qualityEnabledEnv, err)
		}
		c.Quality.Enabled = enabled
	}
	if v := os.Getenv(sendDelayEnv); v != "" {
		delay, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", sendDelayEnv, err)
		}
		c.Throttle.Delay = delay
	}
	return nil
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("scheduler.timezone %q: %w", tz, err)
	}
	c.Scheduler.Timezone = tz
	c.Scheduler.location = loc
	return nil
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file:newsbroadcaster.db?_pragma=busy_timeout(5000)", Migrate: true},
		LLM: LLMConfig{
			Model:     "gpt-4o-mini",
			Timeout:   30 * time.Second,
			MaxTokens: 300,
			Language:  "Hiligaynon",
		},
		Gateways: GatewaysConfig{
			Default:   string(gateway.IPROG),
			IPROG:     IPROGConfig{Timeout: 30 * time.Second},
			Semaphore: SemaphoreConfig{SenderName: "SEMAPHORE", Timeout: 30 * time.Second},
			SIM800C:   ModemConfig{BaudRate: 9600, PollInterval: 100 * time.Millisecond, Timeout: 10 * time.Second},
		},
		Throttle:  ThrottleConfig{Delay: 2 * time.Second, Burst: 1},
		HTTP:      HTTPConfig{Addr: defaultHTTPAddr},
		Scheduler: SchedulerConfig{Timezone: defaultTimezone},
	}
}
