package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration should validate: %v", err)
	}
	if cfg.Booking.DepositCancelWindow != 24*time.Hour {
		t.Errorf("cancel window = %v, want 24h", cfg.Booking.DepositCancelWindow)
	}
	if cfg.Booking.DepositRatio != 0.3 {
		t.Errorf("deposit ratio = %v, want 0.3", cfg.Booking.DepositRatio)
	}
	if cfg.WriteTimeout != 0 {
		t.Errorf("write timeout must default to 0 for event streams, got %v", cfg.WriteTimeout)
	}
	if cfg.GetAPIBasePath() != "/api/v1" {
		t.Errorf("base path = %q", cfg.GetAPIBasePath())
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DEPOSIT_CANCEL_WINDOW_MINUTES", "120")
	t.Setenv("DEPOSIT_RATIO", "0.5")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("BOOKING_TIMEZONE", "Asia/Ho_Chi_Minh")
	t.Setenv("DB_MAX_OPEN_CONNS", "50")
	t.Setenv("DB_CONN_MAX_LIFETIME", "10m")

	cfg := Load()

	if cfg.Booking.DepositCancelWindow != 2*time.Hour {
		t.Errorf("cancel window = %v, want 2h", cfg.Booking.DepositCancelWindow)
	}
	if cfg.Booking.DepositRatio != 0.5 {
		t.Errorf("deposit ratio = %v", cfg.Booking.DepositRatio)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Database.MaxOpenConns != 50 || cfg.Database.ConnMaxLifetime != 10*time.Minute {
		t.Errorf("pool = %d conns, %v lifetime", cfg.Database.MaxOpenConns, cfg.Database.ConnMaxLifetime)
	}
	if cfg.Location().String() != "Asia/Ho_Chi_Minh" {
		t.Errorf("location = %v", cfg.Location())
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"ratio above one", func(c *Config) { c.Booking.DepositRatio = 1.5 }},
		{"unknown timezone", func(c *Config) { c.Booking.Timezone = "Mars/Olympus" }},
		{"short jwt secret", func(c *Config) { c.JWT.Secret = "short" }},
		{"bad whitelist ip", func(c *Config) { c.RateLimit.WhitelistedIPs = []string{"not-an-ip"} }},
		{"kafka without brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}},
		{"gin mode", func(c *Config) { c.GinMode = "verbose" }},
		{"idle above open conns", func(c *Config) {
			c.Database.MaxOpenConns = 4
			c.Database.MaxIdleConns = 8
		}},
		{"empty redis pool", func(c *Config) { c.Redis.PoolSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := &Config{Booking: BookingConfig{Timezone: "Nowhere/Else"}}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", cfg.Location())
	}
}
