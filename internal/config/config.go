// Package config holds process configuration.
//
// Values are layered by Load: defaults from New, then a .env file, then an optional YAML file named by
// PRESTASI_CONFIG, then PRESTASI_* environment variables.
package config

import "time"

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode      Mode   `koanf:"mode"`
	HTTPAddr  string `koanf:"http_addr"`
	PublicURL string `koanf:"public_url"`

	DBDriver string `koanf:"db_driver"` // sqlite|postgres
	DBDSN    string `koanf:"db_dsn"`

	BlobBasePath string `koanf:"blob_base_path"`

	AuthSecret         string        `koanf:"auth_secret"`
	TokenTTL           time.Duration `koanf:"token_ttl"`
	CookieSecure       bool          `koanf:"cookie_secure"`
	EnableRegistration bool          `koanf:"enable_registration"`
	LoginRatePerMinute int           `koanf:"login_rate_per_minute"`

	// Seeded when the users table is empty.
	AdminUser     string `koanf:"admin_user"`
	AdminPassword string `koanf:"admin_password"`
	AdminName     string `koanf:"admin_name"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"` // json|console

	CORSOriginsOnline  []string `koanf:"cors_origins_online"`
	CORSOriginsOffline []string `koanf:"cors_origins_offline"`

	RankingCacheSize int           `koanf:"ranking_cache_size"`
	TracingExporter  string        `koanf:"tracing_exporter"` // "" or stdout
	RequestTimeout   time.Duration `koanf:"request_timeout"`
}

func New() *Config {
	return &Config{
		Mode:               ModeOffline,
		HTTPAddr:           ":8080",
		DBDriver:           "sqlite",
		BlobBasePath:       "./data",
		AuthSecret:         "dev-secret-change-me",
		TokenTTL:           12 * time.Hour,
		LoginRatePerMinute: 10,
		AdminUser:          "admin",
		AdminPassword:      "admin123",
		AdminName:          "Administrator",
		LogLevel:           "info",
		LogFormat:          "json",
		CORSOriginsOnline:  []string{"https://prestasi.sch.id"},
		CORSOriginsOffline: []string{"http://localhost:3000", "http://localhost:5173"},
		RankingCacheSize:   16,
		RequestTimeout:     60 * time.Second,
	}
}

// CORSOrigins returns the allow-list for the active mode.
func (c *Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}
