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
	StaticDir    string
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

// IdentityConfig describes the external identity provider: inbound tokens
// are HMAC JWTs signed with JWTSecret, and BaseURL exposes the provider's
// user-profile API authenticated with APIKey.
type IdentityConfig struct {
	BaseURL   string
	APIKey    string
	JWTSecret string
}

// RTCConfig covers both real-time backends; they share one key pair.
type RTCConfig struct {
	VideoBaseURL string
	ChatBaseURL  string
	APIKey       string
	APISecret    string
}

type SessionsConfig struct {
	MaxAge         time.Duration
	ReapSchedule   string
	LeaderboardTTL time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Identity         IdentityConfig
	RTC              RTCConfig
	Sessions         SessionsConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CODEPAIR")
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fails startup on missing required secrets instead of letting
// handlers discover unusable clients at request time.
func (c *AppConfig) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("config: postgres.dsn is required")
	}
	if c.Identity.JWTSecret == "" {
		return fmt.Errorf("config: identity.jwtsecret is required")
	}
	if c.RTC.APIKey == "" || c.RTC.APISecret == "" {
		return fmt.Errorf("config: rtc.apikey and rtc.apisecret are required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.staticdir", "frontend/dist")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("identity.baseurl", "https://api.identity.example.com/v1")

	v.SetDefault("rtc.videobaseurl", "https://video.rtc.example.com/v1")
	v.SetDefault("rtc.chatbaseurl", "https://chat.rtc.example.com/v1")

	v.SetDefault("sessions.maxage", "6h")
	v.SetDefault("sessions.reapschedule", "0 */10 * * * *") // every 10 minutes
	v.SetDefault("sessions.leaderboardttl", "30s")
}
