package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	FTPHost        string
	FTPTimeout     time.Duration
	FTPDisableEPSV bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// ScratchRoot is the parent for per-request scratch directories.
	// Empty means the OS temp dir.
	ScratchRoot string

	CacheSize int
	CacheTTL  time.Duration

	// Calibration bounds in kelvin for the proxy sample-to-temperature ramp.
	CalibrationMinKelvin float64
	CalibrationMaxKelvin float64

	// Rendering parameters.
	VerticalStretch   float64
	HorizontalStretch float64
	FontPath          string
	Attribution       string
	JPEGQuality       int
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file is honored when present.
func Load() (*Config, error) {
	// Best effort; absence of a .env file is the normal production case.
	_ = godotenv.Load()

	ftpTimeout, err := envDuration("FTP_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := envDuration("CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}
	disableEPSV, err := envBool("FTP_DISABLE_EPSV", true)
	if err != nil {
		return nil, err
	}
	cacheSize, err := envInt("CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}
	jpegQuality, err := envInt("JPEG_QUALITY", 90)
	if err != nil {
		return nil, err
	}
	calMin, err := envFloat("CALIBRATION_MIN_KELVIN", 180)
	if err != nil {
		return nil, err
	}
	calMax, err := envFloat("CALIBRATION_MAX_KELVIN", 320)
	if err != nil {
		return nil, err
	}
	vStretch, err := envFloat("VERTICAL_STRETCH", 1.35)
	if err != nil {
		return nil, err
	}
	hStretch, err := envFloat("HORIZONTAL_STRETCH", 1.0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		FTPHost:        envOrDefault("FTP_HOST", "gms.cr.chiba-u.ac.jp:21"),
		FTPTimeout:     ftpTimeout,
		FTPDisableEPSV: disableEPSV,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ScratchRoot: os.Getenv("SCRATCH_ROOT"),

		CacheSize: cacheSize,
		CacheTTL:  cacheTTL,

		CalibrationMinKelvin: calMin,
		CalibrationMaxKelvin: calMax,

		VerticalStretch:   vStretch,
		HorizontalStretch: hStretch,
		FontPath:          os.Getenv("FONT_PATH"),
		Attribution:       envOrDefault("ATTRIBUTION", "Data: Chiba University CEReS GMS-5/GOES-9 archive"),
		JPEGQuality:       jpegQuality,
	}

	if cfg.FTPHost == "" {
		return nil, errors.New("FTP_HOST is required")
	}
	if cfg.FTPTimeout <= 0 {
		return nil, errors.New("FTP_TIMEOUT must be positive")
	}
	if cfg.CacheSize < 1 {
		return nil, errors.New("CACHE_SIZE must be at least 1")
	}
	if cfg.CacheTTL <= 0 {
		return nil, errors.New("CACHE_TTL must be positive")
	}
	if cfg.CalibrationMaxKelvin <= cfg.CalibrationMinKelvin {
		return nil, errors.New("CALIBRATION_MAX_KELVIN must exceed CALIBRATION_MIN_KELVIN")
	}
	if cfg.VerticalStretch <= 0 || cfg.HorizontalStretch <= 0 {
		return nil, errors.New("stretch factors must be positive")
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return nil, errors.New("JPEG_QUALITY must be in [1, 100]")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
