package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PayoutRunConfig controls the batch payout runner.
type PayoutRunConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	BatchSize    int           `mapstructure:"batchSize"`
	WeeklyDay    time.Weekday  `mapstructure:"weeklyDay"`
	LockTTL      time.Duration `mapstructure:"lockTTL"`
	DryRun       bool          `mapstructure:"dryRun"`
	MaxPerWorker int           `mapstructure:"maxPerWorker"`
}

func DefaultPayoutRunConfig() PayoutRunConfig {
	return PayoutRunConfig{
		Interval:     time.Hour,
		BatchSize:    100,
		WeeklyDay:    time.Friday,
		LockTTL:      10 * time.Minute,
		MaxPerWorker: 500,
	}
}

// PayoutRunConfigHolder exposes the current payout runner configuration and
// reloads it when the config file changes.
type PayoutRunConfigHolder struct {
	current atomic.Value // holds PayoutRunConfig
}

func NewPayoutRunConfigHolder() (*PayoutRunConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("payouts")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fieldpay/config")
	v.AddConfigPath("/etc/fieldpay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FIELDPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPayoutRunConfig()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		v.SetDefault("payouts.interval", defaults.Interval)
		v.SetDefault("payouts.batchSize", defaults.BatchSize)
		v.SetDefault("payouts.weeklyDay", int(defaults.WeeklyDay))
		v.SetDefault("payouts.lockTTL", defaults.LockTTL)
		v.SetDefault("payouts.maxPerWorker", defaults.MaxPerWorker)
	}

	var cfg PayoutRunConfig
	if err := v.UnmarshalKey("payouts", &cfg); err != nil {
		return nil, err
	}
	applyPayoutDefaults(&cfg, defaults)
	if err := validatePayoutRunConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PayoutRunConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PayoutRunConfig
		if err := v.UnmarshalKey("payouts", &updated); err != nil {
			log.Printf("[payout-config] reload failed: %v", err)
			return
		}
		applyPayoutDefaults(&updated, defaults)
		if err := validatePayoutRunConfig(updated); err != nil {
			log.Printf("[payout-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[payout-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PayoutRunConfigHolder) Get() PayoutRunConfig {
	if cfg, ok := h.current.Load().(PayoutRunConfig); ok {
		return cfg
	}
	return DefaultPayoutRunConfig()
}

// Set replaces the current configuration. Intended for tests.
func (h *PayoutRunConfigHolder) Set(cfg PayoutRunConfig) {
	h.current.Store(cfg)
}

func applyPayoutDefaults(cfg *PayoutRunConfig, defaults PayoutRunConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaults.LockTTL
	}
	if cfg.MaxPerWorker <= 0 {
		cfg.MaxPerWorker = defaults.MaxPerWorker
	}
}

func validatePayoutRunConfig(cfg PayoutRunConfig) error {
	if cfg.Interval < time.Minute {
		return errors.New("payouts.interval must be at least one minute")
	}
	if cfg.WeeklyDay < time.Sunday || cfg.WeeklyDay > time.Saturday {
		return errors.New("payouts.weeklyDay must be a valid weekday")
	}
	return nil
}
