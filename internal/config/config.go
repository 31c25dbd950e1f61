package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	JWTTTL                 time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	ResultsCacheTTL        time.Duration
	AutoCloseInterval      time.Duration
	UploadMaxMB            int
	LiveChannel            string
	MailFrom               string
	PublicBaseURL          string
	BootstrapAdminName     string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	LoginRateLimit         int
	StreamKeepAlive        time.Duration
	CORSAllowOrigins       string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EVOTE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Campus eVote API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.ttl", "12h")
	v.SetDefault("cloudinary.folder", "evote")
	v.SetDefault("results.cache_ttl", "30s")
	v.SetDefault("election.autoclose_interval", "1s")
	v.SetDefault("upload.max_mb", 5)
	v.SetDefault("live.channel", "evote:live")
	v.SetDefault("mail.from", "no-reply@evote.local")
	v.SetDefault("public.base_url", "http://localhost:3000")
	v.SetDefault("admin.bootstrap_name", "Election Committee")
	v.SetDefault("security.login_rate_limit", 10)
	v.SetDefault("live.keepalive", "30s")
	v.SetDefault("cors.allow_origins", "*")

	jwtTTL, err := parseDuration(v, "jwt.ttl", "12h")
	if err != nil {
		return Config{}, err
	}

	cacheTTL, err := parseDuration(v, "results.cache_ttl", "30s")
	if err != nil {
		return Config{}, err
	}

	tick, err := parseDuration(v, "election.autoclose_interval", "1s")
	if err != nil {
		return Config{}, err
	}

	keepAlive, err := parseDuration(v, "live.keepalive", "30s")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTTTL:                 jwtTTL,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		ResultsCacheTTL:        cacheTTL,
		AutoCloseInterval:      tick,
		UploadMaxMB:            v.GetInt("upload.max_mb"),
		LiveChannel:            v.GetString("live.channel"),
		MailFrom:               v.GetString("mail.from"),
		PublicBaseURL:          strings.TrimRight(v.GetString("public.base_url"), "/"),
		BootstrapAdminName:     v.GetString("admin.bootstrap_name"),
		BootstrapAdminEmail:    strings.ToLower(strings.TrimSpace(v.GetString("admin.bootstrap_email"))),
		BootstrapAdminPassword: v.GetString("admin.bootstrap_password"),
		LoginRateLimit:         v.GetInt("security.login_rate_limit"),
		StreamKeepAlive:        keepAlive,
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 5
	}

	if cfg.AutoCloseInterval <= 0 {
		cfg.AutoCloseInterval = time.Second
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key, fallback string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		raw = fallback
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return value, nil
}
