package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rentals/internal/domain/rental"
	"rentals/internal/domain/shared/money"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"

	PaymentsStub = "stub"
	PaymentsHTTP = "http"
)

// Config aggregates application configuration values loaded from environment
// variables, optionally layered over a YAML file named by RENTALS_CONFIG.
type Config struct {
	Env                string
	LogLevel           string
	HTTPAddr           string
	StorageDriver      string
	MongoURI           string
	MongoDB            string
	PostgresDSN        string
	RedisAddr          string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	PlatformFee        money.Rate
	Currency           string
	CancellationPolicy rental.CancellationPolicy
	PaymentsMode       string
	PaymentsURL        string
	PaymentsTimeout    time.Duration
	ExpiryCron         string
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	src, err := newSource(os.Getenv("RENTALS_CONFIG"))
	if err != nil {
		return Config{}, err
	}
	return src.load()
}

type source struct {
	file map[string]string
}

func newSource(path string) (source, error) {
	s := source{file: map[string]string{}}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := s.parseYAML(raw); err != nil {
		return s, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return s, nil
}

// parseYAML flattens a mapping of scalars or lists; keys match the env names
// case-insensitively ("http_addr" or "HTTP_ADDR").
func (s *source) parseYAML(raw []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for k, v := range doc {
		key := strings.ToUpper(strings.TrimSpace(k))
		switch val := v.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			s.file[key] = strings.Join(parts, ",")
		case map[string]any:
			return fmt.Errorf("key %s: nested mappings are not supported", k)
		default:
			s.file[key] = fmt.Sprint(val)
		}
	}
	return nil
}

func (s source) load() (Config, error) {
	cfg := Config{
		Env:              s.get("APP_ENV", "dev"),
		LogLevel:         strings.ToLower(s.get("LOG_LEVEL", "info")),
		HTTPAddr:         s.get("HTTP_ADDR", ":8080"),
		StorageDriver:    strings.ToLower(s.get("STORAGE_DRIVER", DriverMemory)),
		MongoURI:         s.get("MONGO_URI", ""),
		MongoDB:          s.get("MONGO_DB", "rentals"),
		PostgresDSN:      s.get("POSTGRES_DSN", ""),
		RedisAddr:        s.get("REDIS_ADDR", ""),
		KafkaTopicPrefix: s.get("KAFKA_TOPIC_PREFIX", ""),
		Currency:         strings.ToUpper(s.get("CURRENCY", "USD")),
		PaymentsMode:     strings.ToLower(s.get("PAYMENTS_MODE", PaymentsStub)),
		PaymentsURL:      s.get("PAYMENTS_URL", ""),
		ExpiryCron:       s.get("EXPIRY_CRON", "@every 15m"),
	}
	if brokers := s.get("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.IdempotencyTTL, err = s.duration("IDEMP_TTL", 168*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = s.duration("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.PaymentsTimeout, err = s.duration("PAYMENTS_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}

	retryStr := s.get("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	fee, err := money.ParseRate(s.get("PLATFORM_FEE_PERCENT", "10"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid PLATFORM_FEE_PERCENT: %w", err)
	}
	cfg.PlatformFee = fee

	policy := rental.DefaultCancellationPolicy()
	if policy.FullRefundWindow, err = s.duration("CANCEL_FULL_REFUND_WINDOW", policy.FullRefundWindow); err != nil {
		return Config{}, err
	}
	if policy.LateRefundPercent, err = s.integer("CANCEL_LATE_REFUND_PERCENT", policy.LateRefundPercent); err != nil {
		return Config{}, err
	}
	if err := policy.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid cancellation policy: %w", err)
	}
	cfg.CancellationPolicy = policy

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	switch c.StorageDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo driver"))
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	switch c.PaymentsMode {
	case PaymentsStub:
	case PaymentsHTTP:
		if c.PaymentsURL == "" {
			errs = append(errs, errors.New("PAYMENTS_URL is required when PAYMENTS_MODE=http"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PAYMENTS_MODE %q", c.PaymentsMode))
	}
	if _, err := money.New(0, c.Currency); err != nil {
		errs = append(errs, fmt.Errorf("invalid CURRENCY %q", c.Currency))
	}
	return errors.Join(errs...)
}

func (s source) get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v, ok := s.file[key]; ok && v != "" {
		return v
	}
	return def
}

func (s source) duration(key string, def time.Duration) (time.Duration, error) {
	raw := s.get(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func (s source) integer(key string, def int) (int, error) {
	raw := strings.TrimSuffix(strings.TrimSpace(s.get(key, "")), "%")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}
