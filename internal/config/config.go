package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Webhook struct {
		AsaasToken string `yaml:"asaas_token"`
	} `yaml:"webhook"`
	Sweeps struct {
		OrderGraceMinutes          int   `yaml:"order_grace_minutes"`
		ReservationTimeoutMinutes  int   `yaml:"reservation_timeout_minutes"`
		OrderIntervalSeconds       int64 `yaml:"order_interval_seconds"`
		ReservationIntervalSeconds int64 `yaml:"reservation_interval_seconds"`
		ReconcileIntervalSeconds   int64 `yaml:"reconcile_interval_seconds"`
	} `yaml:"sweeps"`
}

// Window defaults. The order grace matches the payment provider's own
// pending-charge expiration so a charge the user can no longer pay is not
// held open as a pending order.
const (
	DefaultOrderGraceMinutes         = 15
	DefaultReservationTimeoutMinutes = 30
)

func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err) && !explicit:
		// env-only deployment, no config file
	default:
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if cfg.DB.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ASAAS_WEBHOOK_TOKEN"); v != "" {
		cfg.Webhook.AsaasToken = v
	}
	if v := os.Getenv("ORDER_GRACE_MINUTES"); v != "" {
		cfg.Sweeps.OrderGraceMinutes = atoiOr(cfg.Sweeps.OrderGraceMinutes, v)
	}
	if v := os.Getenv("RESERVATION_TIMEOUT_MINUTES"); v != "" {
		cfg.Sweeps.ReservationTimeoutMinutes = atoiOr(cfg.Sweeps.ReservationTimeoutMinutes, v)
	}
	if v := os.Getenv("ORDER_SWEEP_INTERVAL_SECONDS"); v != "" {
		cfg.Sweeps.OrderIntervalSeconds = atoi64Or(cfg.Sweeps.OrderIntervalSeconds, v)
	}
	if v := os.Getenv("RESERVATION_SWEEP_INTERVAL_SECONDS"); v != "" {
		cfg.Sweeps.ReservationIntervalSeconds = atoi64Or(cfg.Sweeps.ReservationIntervalSeconds, v)
	}
	if v := os.Getenv("RECONCILE_INTERVAL_SECONDS"); v != "" {
		cfg.Sweeps.ReconcileIntervalSeconds = atoi64Or(cfg.Sweeps.ReconcileIntervalSeconds, v)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Sweeps.OrderGraceMinutes <= 0 {
		cfg.Sweeps.OrderGraceMinutes = DefaultOrderGraceMinutes
	}
	if cfg.Sweeps.ReservationTimeoutMinutes <= 0 {
		cfg.Sweeps.ReservationTimeoutMinutes = DefaultReservationTimeoutMinutes
	}
	if cfg.Sweeps.OrderIntervalSeconds <= 0 {
		cfg.Sweeps.OrderIntervalSeconds = 300
	}
	if cfg.Sweeps.ReservationIntervalSeconds <= 0 {
		cfg.Sweeps.ReservationIntervalSeconds = 600
	}
	if cfg.Sweeps.ReconcileIntervalSeconds <= 0 {
		cfg.Sweeps.ReconcileIntervalSeconds = 1800
	}
}

func (c *Config) OrderGracePeriod() time.Duration {
	return time.Duration(c.Sweeps.OrderGraceMinutes) * time.Minute
}

func (c *Config) ReservationTimeout() time.Duration {
	return time.Duration(c.Sweeps.ReservationTimeoutMinutes) * time.Minute
}

func (c *Config) OrderSweepInterval() time.Duration {
	return time.Duration(c.Sweeps.OrderIntervalSeconds) * time.Second
}

func (c *Config) ReservationSweepInterval() time.Duration {
	return time.Duration(c.Sweeps.ReservationIntervalSeconds) * time.Second
}

func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Sweeps.ReconcileIntervalSeconds) * time.Second
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
