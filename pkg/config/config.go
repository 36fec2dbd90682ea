package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the env/.env-driven configuration for a committee member: the
// committee's size and both thresholds, plus the network/storage addresses
// cmd/qcnode wires up. No pacemaker/leader-election timers belong here —
// that configuration would live in a driver this repository doesn't ship.
type Config struct {
	ListenAddr string
	Bootstrap  []string
	APIAddr    string
	DataDir    string

	CommitteeSize    int
	SuccessThreshold uint64
	FailureThreshold uint64
	UseUnified       bool
}

func Default() Config {
	return Config{
		APIAddr:          ":8080",
		DataDir:          "data",
		CommitteeSize:    4,
		SuccessThreshold: 3,
		FailureThreshold: 2,
		UseUnified:       false,
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults. envPath ==
// "" loads ".env" from the current directory.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("LISTEN"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("BOOTSTRAP"); v != "" {
		cfg.Bootstrap = strings.Split(v, ",")
	}
	if v := os.Getenv("COMMITTEE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CommitteeSize = n
		}
	}
	if v := os.Getenv("SUCCESS_THRESHOLD"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.SuccessThreshold = n
		}
	}
	if v := os.Getenv("FAILURE_THRESHOLD"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.FailureThreshold = n
		}
	}
	if v := os.Getenv("USE_UNIFIED_ACCUMULATOR"); v != "" {
		cfg.UseUnified = v == "true"
	}

	return cfg
}
