package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr      string        `yaml:"listen_addr" json:"listen_addr" validate:"required"`
	MetricsAddr     string        `yaml:"metrics_addr" json:"metrics_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"gt=0"`
	LogLevel        string        `yaml:"log_level" json:"log_level" validate:"required,oneof=debug info warn error"`

	Root     string        `yaml:"root" json:"root" validate:"required"`
	Source   string        `yaml:"source" json:"source" validate:"required,oneof=disk memory cached s3"`
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl" validate:"min=0"`

	ETag         bool              `yaml:"etag" json:"etag"`
	AcceptRanges bool              `yaml:"accept_ranges" json:"accept_ranges"`
	LastModified bool              `yaml:"last_modified" json:"last_modified"`
	CacheControl string            `yaml:"cache_control" json:"cache_control"`
	Headers      map[string]string `yaml:"headers" json:"headers"`

	ThrottleBytesPerSec int `yaml:"throttle_bytes_per_sec" json:"throttle_bytes_per_sec" validate:"min=0"`

	Watch       bool          `yaml:"watch" json:"watch"`
	WatchSettle time.Duration `yaml:"watch_settle" json:"watch_settle" validate:"min=0"`

	S3 S3 `yaml:"s3" json:"s3"`
}

// S3 параметры бакета для source: s3.
type S3 struct {
	Bucket       string `yaml:"bucket" json:"bucket"`
	Prefix       string `yaml:"prefix" json:"prefix"`
	Region       string `yaml:"region" json:"region"`
	Endpoint     string `yaml:"endpoint" json:"endpoint"`
	AccessKey    string `yaml:"access_key" json:"-"`
	SecretKey    string `yaml:"secret_key" json:"-"`
	UsePathStyle bool   `yaml:"use_path_style" json:"use_path_style"`
}

var validate = validator.New()

// Default возвращает конфигурацию, к которой применяются файл и ENV.
func Default() Config {
	return Config{
		ListenAddr:      ":8080",
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		Root:            ".",
		Source:          "disk",
		CacheTTL:        time.Minute,
		ETag:            true,
		AcceptRanges:    true,
		LastModified:    true,
		WatchSettle:     200 * time.Millisecond,
	}
}

// Load читает YAML-конфигурацию, применяет ENV-переопределения и возвращает актуальную структуру.
// Отсутствующий файл не ошибка: остаются значения по умолчанию.
func Load() (*Config, error) {
	c := Default()

	path := getenv("CONFIG_PATH", "./config.yaml")
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	if err := applyEnv(&c); err != nil {
		return nil, err
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	if err := Validate(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate проверяет теги и правила, которые тегами не выразить.
func Validate(c *Config) error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
		}
		return err
	}

	if c.Source == "s3" && strings.TrimSpace(c.S3.Bucket) == "" {
		return fmt.Errorf("s3.bucket is required for source s3")
	}
	if c.Watch && c.Source != "disk" && c.Source != "cached" {
		return fmt.Errorf("watch is supported only for disk and cached sources, got %q", c.Source)
	}

	return nil
}

func applyEnv(c *Config) error {
	strs := map[string]*string{
		"LISTEN_ADDR":   &c.ListenAddr,
		"METRICS_ADDR":  &c.MetricsAddr,
		"LOG_LEVEL":     &c.LogLevel,
		"ROOT":          &c.Root,
		"SOURCE":        &c.Source,
		"CACHE_CONTROL": &c.CacheControl,
		"S3_BUCKET":     &c.S3.Bucket,
		"S3_PREFIX":     &c.S3.Prefix,
		"S3_REGION":     &c.S3.Region,
		"S3_ENDPOINT":   &c.S3.Endpoint,
		"S3_ACCESS_KEY": &c.S3.AccessKey,
		"S3_SECRET_KEY": &c.S3.SecretKey,
	}
	for k, dst := range strs {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"ETAG":              &c.ETag,
		"ACCEPT_RANGES":     &c.AcceptRanges,
		"LAST_MODIFIED":     &c.LastModified,
		"WATCH":             &c.Watch,
		"S3_USE_PATH_STYLE": &c.S3.UsePathStyle,
	}
	for k, dst := range bools {
		if v := os.Getenv(k); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*dst = b
		}
	}

	durations := map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
		"CACHE_TTL":        &c.CacheTTL,
		"WATCH_SETTLE":     &c.WatchSettle,
	}
	for k, dst := range durations {
		if v := os.Getenv(k); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("THROTTLE_BYTES_PER_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("THROTTLE_BYTES_PER_SEC: %w", err)
		}
		c.ThrottleBytesPerSec = n
	}

	// HEADERS=Name=value,Other=value
	if v := os.Getenv("HEADERS"); v != "" {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		for _, pair := range splitComma(v) {
			name, value, ok := strings.Cut(pair, "=")
			if !ok || strings.TrimSpace(name) == "" {
				return fmt.Errorf("HEADERS: bad pair %q", pair)
			}
			c.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
	}

	return nil
}

func splitComma(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}

	return def
}
