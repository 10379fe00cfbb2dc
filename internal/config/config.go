// Package config loads service settings from .env.local, an optional
// config.yaml and environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
)

type Server struct {
	Port           string        `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type Database struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Query struct {
	MaxRadiusM float64 `mapstructure:"max_radius_m"`
}

type Ingest struct {
	DefaultSource          string        `mapstructure:"default_source"`
	RoutePolygonBoundaries bool          `mapstructure:"route_polygon_boundaries"`
	HTTPTimeout            time.Duration `mapstructure:"http_timeout"`
	MaxDownloadBytes       int64         `mapstructure:"max_download_bytes"`
}

type Admin struct {
	// TokenHash is a bcrypt hash of the admin token. Empty disables /admin.
	TokenHash string `mapstructure:"token_hash"`
}

// Settings is the full service configuration.
type Settings struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Log      Log      `mapstructure:"log"`
	Query    Query    `mapstructure:"query"`
	Ingest   Ingest   `mapstructure:"ingest"`
	Admin    Admin    `mapstructure:"admin"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.slow_threshold", "100ms")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("query.max_radius_m", 50000.0)

	v.SetDefault("ingest.default_source", "OSM")
	v.SetDefault("ingest.route_polygon_boundaries", false)
	v.SetDefault("ingest.http_timeout", "60s")
	v.SetDefault("ingest.max_download_bytes", int64(256<<20))

	v.SetDefault("admin.token_hash", "")
}

// envAliases keeps the plain variable names deployments already use.
var envAliases = map[string][]string{
	"database.url":     {"PARKS_DATABASE_URL", "DATABASE_URL"},
	"server.port":      {"PARKS_SERVER_PORT", "PORT"},
	"log.level":        {"PARKS_LOG_LEVEL", "LOG_LEVEL"},
	"log.format":       {"PARKS_LOG_FORMAT", "LOG_FORMAT"},
	"admin.token_hash": {"PARKS_ADMIN_TOKEN_HASH", "ADMIN_TOKEN_HASH"},
}

// Load reads .env.local (if present), then config.yaml from the given paths
// (defaults "." and "./configs"), then the environment.
func Load(paths ...string) (*Settings, error) {
	_ = godotenv.Load(".env.local")

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./configs"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("PARKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envAliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !apperrors.As(err, &notFound) {
			return nil, apperrors.New(fmt.Errorf("read config: %w", err)).
				Category(apperrors.CategoryConfig).
				Build()
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks values that would otherwise fail late.
func (s *Settings) Validate() error {
	var problems []string
	if s.Database.URL == "" {
		problems = append(problems, "database.url (DATABASE_URL) is empty")
	}
	if s.Server.Port == "" {
		problems = append(problems, "server.port is empty")
	}
	if s.Query.MaxRadiusM <= 0 {
		problems = append(problems, "query.max_radius_m must be positive")
	}
	if s.Server.RateLimitRPS < 0 {
		problems = append(problems, "server.rate_limit_rps must not be negative")
	}
	if s.Ingest.MaxDownloadBytes <= 0 {
		problems = append(problems, "ingest.max_download_bytes must be positive")
	}
	if len(problems) > 0 {
		return apperrors.New(fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))).
			Category(apperrors.CategoryConfig).
			Build()
	}
	return nil
}
