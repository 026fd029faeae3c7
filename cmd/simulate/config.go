package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

// SimConfig drives a booking contention run against a live api-server.
type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	StatusRatio  float64
	ReadRatio    float64
	Patients     int
	Dates        int
	StartDate    string
	LogLevel     string
	LogFormat    string
}

// loadConfig reads SIM_* settings from the environment and .env.
func loadConfig(now time.Time) (SimConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SIM")
	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", "http://localhost:8080")
	v.SetDefault("DURATION", 30*time.Second)
	v.SetDefault("WORKERS", 10)
	v.SetDefault("BOOKING_RATIO", 0.5)
	v.SetDefault("STATUS_RATIO", 0.2)
	v.SetDefault("READ_RATIO", 0.3)
	v.SetDefault("PATIENTS", 50)
	v.SetDefault("DATES", 3)
	v.SetDefault("START_DATE", schedule.FormatDate(now.AddDate(0, 0, 1)))
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	cfg := SimConfig{
		APIBaseURL:   strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		Duration:     v.GetDuration("DURATION"),
		Workers:      v.GetInt("WORKERS"),
		BookingRatio: v.GetFloat64("BOOKING_RATIO"),
		StatusRatio:  v.GetFloat64("STATUS_RATIO"),
		ReadRatio:    v.GetFloat64("READ_RATIO"),
		Patients:     v.GetInt("PATIENTS"),
		Dates:        v.GetInt("DATES"),
		StartDate:    v.GetString("START_DATE"),
		LogLevel:     strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:    strings.ToLower(v.GetString("LOG_FORMAT")),
	}
	if err := cfg.validate(); err != nil {
		return SimConfig{}, err
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.StatusRatio + cfg.ReadRatio
	cfg.BookingRatio /= total
	cfg.StatusRatio /= total
	cfg.ReadRatio /= total

	return cfg, nil
}

func (cfg SimConfig) validate() error {
	switch {
	case cfg.Workers <= 0:
		return errors.New("SIM_WORKERS must be > 0")
	case cfg.Duration <= 0:
		return errors.New("SIM_DURATION must be > 0")
	case cfg.Patients <= 0 || cfg.Dates <= 0:
		return errors.New("SIM_PATIENTS and SIM_DATES must be > 0")
	case cfg.BookingRatio < 0 || cfg.StatusRatio < 0 || cfg.ReadRatio < 0:
		return errors.New("SIM_*_RATIO must be >= 0")
	case cfg.BookingRatio+cfg.StatusRatio+cfg.ReadRatio == 0:
		return errors.New("at least one SIM_*_RATIO must be > 0")
	}
	if _, err := schedule.ParseDate(cfg.StartDate); err != nil {
		return fmt.Errorf("SIM_START_DATE: %w", err)
	}
	return nil
}
