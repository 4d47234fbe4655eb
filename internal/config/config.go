package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"eth-faucet/internal/ledger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	ListenAddr string
	StaticDir  string
	TrustXFF   bool
	AdminToken string

	RPCURL           string
	KeystorePath     string
	KeystorePassword string

	// PayoutAmount is the fixed payout in ether, as configured.
	PayoutAmount   string
	PayoutCooldown time.Duration
	TokenSymbol    string

	ThrottleRPS   float64
	ThrottleBurst int

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatsPrefix   string

	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded")
	}

	cfg := Config{
		ListenAddr: getenvDefault("LISTEN_ADDR", ":8000"),
		StaticDir:  os.Getenv("STATIC_DIR"),
		TrustXFF:   getenvBoolDefault("TRUST_XFF", false),
		AdminToken: os.Getenv("ADMIN_TOKEN"),

		RPCURL:           os.Getenv("RPC_URL"),
		KeystorePath:     getenvDefault("KEYSTORE_PATH", "config/faucet_account"),
		KeystorePassword: os.Getenv("KEYSTORE_PASSWORD"),

		PayoutAmount:   getenvDefault("PAYOUT_AMOUNT", "1"),
		PayoutCooldown: getenvDurationDefault("PAYOUT_COOLDOWN", 10*time.Second),
		TokenSymbol:    getenvDefault("TOKEN_SYMBOL", "ETH"),

		ThrottleRPS:   getenvFloatDefault("THROTTLE_RPS", 5),
		ThrottleBurst: getenvIntDefault("THROTTLE_BURST", 10),

		DatabaseDSN: os.Getenv("DATABASE_DSN"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvIntDefault("REDIS_DB", 0),
		StatsPrefix:   getenvDefault("STATS_PREFIX", "faucet:admissions"),

		LogLevel:  getenvDefault("LOG_LEVEL", "info"),
		LogFormat: getenvDefault("LOG_FORMAT", "json"),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.RPCURL) == "" {
		errs = append(errs, errors.New("RPC_URL is required"))
	}
	if strings.TrimSpace(c.KeystorePath) == "" {
		errs = append(errs, errors.New("KEYSTORE_PATH is required"))
	}
	if c.KeystorePassword == "" {
		errs = append(errs, errors.New("KEYSTORE_PASSWORD is required"))
	}
	if _, err := ledger.ParseEther(c.PayoutAmount); err != nil {
		errs = append(errs, fmt.Errorf("PAYOUT_AMOUNT: %w", err))
	}
	if c.PayoutCooldown < 0 {
		errs = append(errs, errors.New("PAYOUT_COOLDOWN must be >= 0"))
	}
	if c.ThrottleRPS < 0 {
		errs = append(errs, errors.New("THROTTLE_RPS must be >= 0"))
	}
	if c.ThrottleRPS > 0 && c.ThrottleBurst <= 0 {
		errs = append(errs, errors.New("THROTTLE_BURST must be > 0 when THROTTLE_RPS is set"))
	}
	return errors.Join(errs...)
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid int, using default")
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid float, using default")
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid bool, using default")
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// bare numbers are seconds, as in the old payoutFrequency setting
		if secs, ferr := strconv.ParseFloat(v, 64); ferr == nil {
			return time.Duration(secs * float64(time.Second))
		}
		log.Warn().Str("key", k).Str("value", v).Msg("invalid duration, using default")
		return def
	}
	return d
}
