package config

import (
	"errors"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	CMS      CMSConfig      `yaml:"cms"`
	Cache    CacheConfig    `yaml:"cache"`
	Database DatabaseConfig `yaml:"database"`
	Cron     CronConfig     `yaml:"cron"`
	Site     SiteConfig     `yaml:"site"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type CMSConfig struct {
	ProjectID   string        `yaml:"project_id"`
	Dataset     string        `yaml:"dataset"`
	APIVersion  string        `yaml:"api_version"`
	Token       string        `yaml:"token"`
	UseCDN      bool          `yaml:"use_cdn"`
	Perspective string        `yaml:"perspective"`
	APIHost     string        `yaml:"api_host"`
	CDNHost     string        `yaml:"cdn_host"`
	Timeout     time.Duration `yaml:"timeout"`
	// Revalidate is the default cache lifetime for queries; 0 disables caching.
	Revalidate time.Duration `yaml:"revalidate"`
}

type CacheConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type CronConfig struct {
	WarmInterval string `yaml:"warm_interval"` // pre-fetch every article page
	FeedInterval string `yaml:"feed_interval"` // import fallback feeds
}

type SiteConfig struct {
	Name          string `yaml:"name"`
	BaseURL       string `yaml:"base_url"`
	FallbackImage string `yaml:"fallback_image"`
	Timezone      string `yaml:"timezone"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "3000",
			Mode: "debug",
		},
		CMS: CMSConfig{
			Dataset:     "production",
			APIVersion:  "2024-01-01",
			Perspective: "published",
			Timeout:     10 * time.Second,
			Revalidate:  60 * time.Second,
		},
		Cache: CacheConfig{
			Addr: "localhost:6379",
		},
		Database: DatabaseConfig{
			Path: "data/news.db",
		},
		Cron: CronConfig{
			WarmInterval: "*/10 * * * *",
			FeedInterval: "*/30 * * * *",
		},
		Site: SiteConfig{
			Name:          "Daily Crypto",
			BaseURL:       "http://localhost:3000",
			FallbackImage: "/static/img/placeholder.svg",
			Timezone:      "Asia/Manila",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads defaults, then the YAML file at configPath (if present), then
// .env and environment overrides, and validates the result.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else {
		log.Info().Str("path", configPath).Msg("config file not found, using defaults")
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Mode, "GIN_MODE")
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.CMS.ProjectID, "SANITY_PROJECT_ID")
	setString(&c.CMS.Dataset, "SANITY_DATASET")
	setString(&c.CMS.APIVersion, "SANITY_API_VERSION")
	setString(&c.CMS.Token, "SANITY_API_READ_TOKEN")
	setString(&c.Log.Level, "LOG_LEVEL")

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Cache.Addr = addr
		c.Cache.Enabled = true
	}
	setString(&c.Cache.Password, "REDIS_PASSWORD")
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.CMS),
		validation.Field(&c.Cache),
		validation.Field(&c.Database),
		validation.Field(&c.Cron),
		validation.Field(&c.Site),
		validation.Field(&c.Log),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required),
		validation.Field(&s.Mode, validation.In("debug", "release", "test")),
	)
}

func (c CMSConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ProjectID, validation.Required.Error("project id is required (SANITY_PROJECT_ID)")),
		validation.Field(&c.Dataset, validation.Required),
		validation.Field(&c.APIVersion, validation.Required),
		validation.Field(&c.Perspective, validation.In("published", "previewDrafts", "raw", "drafts")),
		validation.Field(&c.APIHost, is.URL),
		validation.Field(&c.CDNHost, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Revalidate, validation.Min(time.Duration(0))),
	)
}

func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.DB, validation.Min(0)),
	)
}

func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Path, validation.Required),
	)
}

func (c CronConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.WarmInterval, validation.By(cronSpec)),
		validation.Field(&c.FeedInterval, validation.By(cronSpec)),
	)
}

func (s SiteConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.BaseURL, validation.Required, is.URL),
		validation.Field(&s.Timezone, validation.By(timezone)),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("trace", "debug", "info", "warn", "error")),
	)
}

// Location returns the configured site timezone, UTC if it cannot be loaded.
func (s SiteConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetServerAddress returns the listen address.
func (c *Config) GetServerAddress() string {
	if _, err := strconv.Atoi(c.Server.Port); err == nil {
		return ":" + c.Server.Port
	}
	return c.Server.Port
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// cronSpec accepts an empty value (job disabled) or a standard 5-field spec.
func cronSpec(value interface{}) error {
	spec, _ := value.(string)
	if spec == "" {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return errors.New("must be a valid cron expression")
	}
	return nil
}

func timezone(value interface{}) error {
	tz, _ := value.(string)
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return errors.New("must be a valid IANA timezone")
	}
	return nil
}
