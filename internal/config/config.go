// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"telegram-storefront-bot/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

// Duration decodes yaml either as a Go duration string ("100ms", "1h")
// or as raw nanoseconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

type BotConfig struct {
	Token   string `yaml:"token"`
	Workers int    `yaml:"workers"` // polling workers
	// AdminChatID is the single reviewer chat. Zero disables the whole
	// admin surface.
	AdminChatID int64 `yaml:"admin_chat_id"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type OpsConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string   `yaml:"url"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

type StoreConfig struct {
	ChannelID       string `yaml:"channel_id"`
	ContactUsername string `yaml:"contact_username"`
	PaymentInfo     string `yaml:"payment_info"`

	Plans []model.Plan `yaml:"plans"`
}

type BroadcastConfig struct {
	Pace        Duration `yaml:"pace"`         // minimum gap between sends
	SendTimeout Duration `yaml:"send_timeout"` // per-recipient deadline
}

type SchedulerConfig struct {
	PendingReminderCron string   `yaml:"pending_reminder_cron"`
	PendingMaxAge       Duration `yaml:"pending_max_age"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Ops       OpsConfig       `yaml:"ops"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Store     StoreConfig     `yaml:"store"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string = ""
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	// .env is optional; real env always wins over both file layers.
	_ = godotenv.Load()

	var cfg Config
	if b, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)

	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Ops.Port <= 0 {
		cfg.Ops.Port = 8081
	}
	if cfg.Store.ChannelID == "" {
		cfg.Store.ChannelID = "@suetanawb"
	}
	if cfg.Store.ContactUsername == "" {
		cfg.Store.ContactUsername = "@FILIPPMP"
	}
	if len(cfg.Store.Plans) == 0 {
		cfg.Store.Plans = DefaultPlans()
	}
	if cfg.Broadcast.Pace.Std() < 100*time.Millisecond {
		cfg.Broadcast.Pace = Duration(100 * time.Millisecond)
	}
	if cfg.Broadcast.SendTimeout <= 0 {
		cfg.Broadcast.SendTimeout = Duration(5 * time.Second)
	}
	if cfg.Scheduler.PendingReminderCron == "" {
		cfg.Scheduler.PendingReminderCron = "0 12 * * *"
	}
	if cfg.Scheduler.PendingMaxAge <= 0 {
		cfg.Scheduler.PendingMaxAge = Duration(24 * time.Hour)
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	for _, p := range cfg.Store.Plans {
		if p.Code == "" || p.Period == "" || p.Amount <= 0 {
			return nil, fmt.Errorf("store.plans: invalid plan %q", p.Code)
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// DefaultPlans mirrors the storefront's two subscription offers.
func DefaultPlans() []model.Plan {
	return []model.Plan{
		{Code: "1month", Period: "1 месяц", Amount: 5990},
		{Code: "6months", Period: "6 месяцев", Amount: 29990},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if v := os.Getenv("ADMIN_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Bot.AdminChatID = id
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("CHANNEL_ID"); v != "" {
		cfg.Store.ChannelID = v
	}
	if v := os.Getenv("CONTACT_USERNAME"); v != "" {
		cfg.Store.ContactUsername = v
	}
	if v := os.Getenv("PAYMENT_INFO"); v != "" {
		cfg.Store.PaymentInfo = v
	}
}

func normalizeTTL(d Duration) Duration {
	if d <= 0 {
		return Duration(time.Hour)
	}
	return d
}
