package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	JWTSecret    string
	JWTAccessTTL time.Duration
	// MaxSessions is a policy value surfaced to the settings UI. The
	// lifecycle logic deliberately does not enforce it; multiple
	// concurrent active sessions per user are allowed.
	MaxSessions int
}

// AccessConfig defines the daily window during which non-admin staff may
// hold a session, plus the presence and re-check tuning knobs.
type AccessConfig struct {
	WindowStart      string
	WindowEnd        string
	Timezone         string
	RecencyThreshold time.Duration
	PollInterval     time.Duration
}

type ClockConfig struct {
	TimeSourceURL  string
	ResyncInterval time.Duration
	SyncTimeout    time.Duration
}

type AuditConfig struct {
	BufferSize     int
	ArchiveEnabled bool
}

type StorageConfig struct {
	Endpoint    string
	AccessKey   string
	SecretKey   string
	AuditBucket string
	UseSSL      bool
	Region      string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Access           AccessConfig
	Clock            ClockConfig
	Audit            AuditConfig
	Storage          StorageConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("STAFFHUB")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.jwtaccessttl", "12h")
	v.SetDefault("security.maxsessions", 3)

	v.SetDefault("access.windowstart", "05:30")
	v.SetDefault("access.windowend", "21:30")
	v.SetDefault("access.timezone", "Local")
	v.SetDefault("access.recencythreshold", "15m")
	v.SetDefault("access.pollinterval", "60s")

	v.SetDefault("clock.resyncinterval", "5m")
	v.SetDefault("clock.synctimeout", "3s")

	v.SetDefault("audit.buffersize", 256)
	v.SetDefault("audit.archiveenabled", false)

	v.SetDefault("storage.auditbucket", "staffhub-audit")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
}
