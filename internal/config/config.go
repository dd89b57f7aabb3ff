package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"metargb/transfusion-service/internal/service"
)

// DefaultHolidayURLs are the official holiday feeds for 1404–1406.
var DefaultHolidayURLs = []string{
	"https://raw.githubusercontent.com/iyazdanicharati/IranHollidaysJSON/refs/heads/main/1404.json",
	"https://raw.githubusercontent.com/iyazdanicharati/IranHollidaysJSON/refs/heads/main/1405.json",
	"https://raw.githubusercontent.com/iyazdanicharati/IranHollidaysJSON/refs/heads/main/1406.json",
}

type Config struct {
	HTTPPort string
	GRPCPort string

	HolidayURLs         []string
	HolidayFetchTimeout time.Duration
	HolidayCacheTTL     time.Duration
	RedisURL            string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBDatabase string

	RestDay time.Weekday
	Policy  service.Policy
}

// DatabaseEnabled reports whether a MySQL holiday store is configured.
func (c *Config) DatabaseEnabled() bool {
	return c.DBHost != ""
}

// DSN returns the MySQL data source name.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBDatabase)
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	defaults := service.DefaultPolicy()
	p := &parser{}

	cfg := &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GRPCPort: getEnv("GRPC_PORT", "50070"),

		HolidayURLs:         getEnvList("HOLIDAY_URLS", DefaultHolidayURLs),
		HolidayFetchTimeout: p.duration("HOLIDAY_FETCH_TIMEOUT", 10*time.Second),
		HolidayCacheTTL:     p.duration("HOLIDAY_CACHE_TTL", 24*time.Hour),
		RedisURL:            getEnv("REDIS_URL", ""),

		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBDatabase: getEnv("DB_DATABASE", "transfusion_db"),

		RestDay: p.weekday("REST_DAY", time.Friday),
		Policy: service.Policy{
			UnitVolumeMl:    p.floatVal("UNIT_VOLUME_ML", defaults.UnitVolumeMl),
			MaxUnits:        p.intVal("MAX_UNITS", defaults.MaxUnits),
			MlPerKgPerGdl:   p.floatVal("ML_PER_KG_PER_GDL", defaults.MlPerKgPerGdl),
			MinIntervalDays: p.floatVal("MIN_INTERVAL_DAYS", defaults.MinIntervalDays),
			MaxIntervalDays: p.floatVal("MAX_INTERVAL_DAYS", defaults.MaxIntervalDays),
			MaxPostHb:       p.floatVal("MAX_POST_HB", defaults.MaxPostHb),
			MaxSkipDays:     p.intVal("MAX_SKIP_DAYS", defaults.MaxSkipDays),
		},
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule policy: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (p *parser) floatVal(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return f
}

func (p *parser) intVal(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return n
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return d
}

func (p *parser) weekday(key string, defaultValue time.Weekday) time.Weekday {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), value) {
			return d
		}
	}
	p.fail(key, value, fmt.Errorf("unknown weekday"))
	return defaultValue
}
