package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/robertarktes/studio-bookings/internal/domain"
)

const (
	ReservationModeOff    = "off"
	ReservationModeLedger = "ledger"
)

type Config struct {
	HTTPAddr      string
	MongoURI      string
	MongoDatabase string
	CRDBDSN       string
	RedisAddr     string
	RabbitURL     string
	JWTSecret     string
	JWTTTL        time.Duration
	BcryptCost    int
	OTLPEndpoint  string

	ReservationMode string
	IdempotencyTTL  time.Duration
	UserRateLimit   int
	IPRateLimit     int
	RateLimitWindow time.Duration

	OutboxPollInterval  time.Duration
	ExpirySweepInterval time.Duration

	Pricing domain.PricingPolicy
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:        envStr("HTTP_ADDR", ":8080"),
		MongoURI:        envStr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   envStr("MONGO_DB", "studio"),
		CRDBDSN:         os.Getenv("CRDB_DSN"),
		RedisAddr:       envStr("REDIS_ADDR", "localhost:6379"),
		RabbitURL:       os.Getenv("RABBIT_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ReservationMode: strings.ToLower(envStr("RESERVATION_MODE", ReservationModeOff)),
		Pricing:         domain.DefaultPricingPolicy(),
	}

	var err error
	if cfg.JWTTTL, err = envDur("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = envDur("IDEMPOTENCY_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = envDur("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.OutboxPollInterval, err = envDur("OUTBOX_POLL_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ExpirySweepInterval, err = envDur("SUBSCRIPTION_SWEEP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = envInt("BCRYPT_COST", 10); err != nil {
		return nil, err
	}
	if cfg.UserRateLimit, err = envInt("RATE_LIMIT_USER", 60); err != nil {
		return nil, err
	}
	if cfg.IPRateLimit, err = envInt("RATE_LIMIT_IP", 300); err != nil {
		return nil, err
	}
	if err := loadPricing(&cfg.Pricing); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.ReservationMode != ReservationModeOff && cfg.ReservationMode != ReservationModeLedger {
		return nil, errors.Newf("RESERVATION_MODE must be %q or %q, got %q", ReservationModeOff, ReservationModeLedger, cfg.ReservationMode)
	}
	return cfg, nil
}

// loadPricing applies PRICING_* overrides on top of the default policy.
// PRICING_SERVICE_CHARGES has the form "Function Shoot=5000;Equipment Rental=500".
func loadPricing(p *domain.PricingPolicy) error {
	var err error
	if p.DailyRateRatio, err = envFloat("PRICING_DAILY_RATE_RATIO", p.DailyRateRatio); err != nil {
		return err
	}
	if p.HourlyRateRatio, err = envFloat("PRICING_HOURLY_RATE_RATIO", p.HourlyRateRatio); err != nil {
		return err
	}
	if p.TaxRate, err = envFloat("PRICING_TAX_RATE", p.TaxRate); err != nil {
		return err
	}
	if p.DefaultServiceCharge, err = envFloat("PRICING_DEFAULT_SERVICE_CHARGE", p.DefaultServiceCharge); err != nil {
		return err
	}
	raw := os.Getenv("PRICING_SERVICE_CHARGES")
	if raw == "" {
		return nil
	}
	charges := map[string]float64{}
	for _, pair := range strings.Split(raw, ";") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.Newf("PRICING_SERVICE_CHARGES: malformed entry %q", pair)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return errors.Wrapf(err, "PRICING_SERVICE_CHARGES: entry %q", pair)
		}
		charges[strings.TrimSpace(k)] = f
	}
	p.ServiceChargeByType = charges
	return nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDur(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration for %s", key)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid int for %s", key)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid number for %s", key)
	}
	return f, nil
}
