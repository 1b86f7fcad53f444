package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ModeSequential = "sequential"
	ModePooled     = "pooled"

	DeliverySession = "session"
	DeliveryDirect  = "direct"
)

type Config struct {
	Port       string
	Production bool

	MaxImages       int
	MaxImageBytes   int64
	MaxRequestBytes int64
	MaxDimension    int
	JPEGQuality     int

	SessionTTL    time.Duration
	SweepInterval time.Duration
	MaxSessions   int

	NormalizerMode  string
	WorkerPoolSize  int
	AssemblyTimeout time.Duration
	DeliveryMode    string

	// пусто: встроенный сборщик, иначе путь к img2pdf
	Img2PDFBin string

	AllowedOrigins     []string
	RateLimitPerMinute int

	SofficeBin     string
	TextServiceURL string
}

func Default() Config {
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}
	return Config{
		Port:               "8080",
		Production:         true,
		MaxImages:          200,
		MaxImageBytes:      20 << 20,
		MaxRequestBytes:    100 << 20,
		MaxDimension:       3000,
		JPEGQuality:        85,
		SessionTTL:         10 * time.Minute,
		SweepInterval:      5 * time.Minute,
		NormalizerMode:     ModePooled,
		WorkerPoolSize:     workers,
		AssemblyTimeout:    120 * time.Second,
		DeliveryMode:       DeliverySession,
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 30,
		SofficeBin:         "soffice",
		TextServiceURL:     "http://python_doc:8000/convert",
	}
}

// Load читает .env (если есть) и переменные окружения поверх дефолтов.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function; unset keys keep defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	p := parser{getenv: getenv}

	if v := getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := getenv("APP_ENV"); v != "" {
		cfg.Production = strings.EqualFold(v, "production")
	}

	cfg.MaxImages = p.int("MAX_IMAGES", cfg.MaxImages)
	cfg.MaxImageBytes = p.int64("MAX_IMAGE_BYTES", cfg.MaxImageBytes)
	cfg.MaxRequestBytes = p.int64("MAX_REQUEST_BYTES", cfg.MaxRequestBytes)
	cfg.MaxDimension = p.int("MAX_DIMENSION", cfg.MaxDimension)
	cfg.JPEGQuality = p.int("JPEG_QUALITY", cfg.JPEGQuality)
	cfg.SessionTTL = time.Duration(p.int("SESSION_TTL_MINUTES", int(cfg.SessionTTL/time.Minute))) * time.Minute
	cfg.SweepInterval = time.Duration(p.int("SWEEP_INTERVAL_SECONDS", int(cfg.SweepInterval/time.Second))) * time.Second
	cfg.MaxSessions = p.int("MAX_SESSIONS", cfg.MaxSessions)
	cfg.WorkerPoolSize = p.int("WORKER_POOL_SIZE", cfg.WorkerPoolSize)
	cfg.AssemblyTimeout = time.Duration(p.int("ASSEMBLY_TIMEOUT_SECONDS", int(cfg.AssemblyTimeout/time.Second))) * time.Second
	cfg.RateLimitPerMinute = p.int("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)

	if v := getenv("NORMALIZER_MODE"); v != "" {
		cfg.NormalizerMode = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("DELIVERY_MODE"); v != "" {
		cfg.DeliveryMode = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	cfg.Img2PDFBin = strings.TrimSpace(getenv("IMG2PDF_BIN"))
	if v := getenv("SOFFICE_BIN"); v != "" {
		cfg.SofficeBin = v
	}
	if v := getenv("TEXT_SERVICE_URL"); v != "" {
		cfg.TextServiceURL = v
	}

	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.MaxImages < 1 {
		errs = append(errs, fmt.Errorf("MAX_IMAGES must be positive, got %d", c.MaxImages))
	}
	if c.MaxImageBytes < 1 {
		errs = append(errs, fmt.Errorf("MAX_IMAGE_BYTES must be positive, got %d", c.MaxImageBytes))
	}
	if c.MaxRequestBytes < c.MaxImageBytes {
		errs = append(errs, fmt.Errorf("MAX_REQUEST_BYTES (%d) is below MAX_IMAGE_BYTES (%d)", c.MaxRequestBytes, c.MaxImageBytes))
	}
	if c.MaxDimension < 1 {
		errs = append(errs, fmt.Errorf("MAX_DIMENSION must be positive, got %d", c.MaxDimension))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("JPEG_QUALITY must be within 1..100, got %d", c.JPEGQuality))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL_MINUTES must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL_SECONDS must be positive"))
	}
	if c.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("MAX_SESSIONS must not be negative, got %d", c.MaxSessions))
	}
	switch c.NormalizerMode {
	case ModeSequential:
	case ModePooled:
		if c.WorkerPoolSize < 1 {
			errs = append(errs, fmt.Errorf("WORKER_POOL_SIZE must be positive in pooled mode, got %d", c.WorkerPoolSize))
		}
	default:
		errs = append(errs, fmt.Errorf("NORMALIZER_MODE must be %q or %q, got %q", ModeSequential, ModePooled, c.NormalizerMode))
	}
	if c.AssemblyTimeout <= 0 {
		errs = append(errs, errors.New("ASSEMBLY_TIMEOUT_SECONDS must be positive"))
	}
	if c.DeliveryMode != DeliverySession && c.DeliveryMode != DeliveryDirect {
		errs = append(errs, fmt.Errorf("DELIVERY_MODE must be %q or %q, got %q", DeliverySession, DeliveryDirect, c.DeliveryMode))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.RateLimitPerMinute))
	}
	return errors.Join(errs...)
}

type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) int(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err = errors.Join(p.err, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) int64(key string, def int64) int64 {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.err = errors.Join(p.err, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
