package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/noahsroberts/invitekit/internal/models"
)

// Config represents the runtime configuration for invitekit. It is loaded
// once at process start and immutable for the process lifetime.
type Config struct {
	LogLevel     string                     `mapstructure:"log_level"`
	Authentik    AuthentikConfig            `mapstructure:"authentik"`
	Email        EmailConfig                `mapstructure:"email"`
	Invite       InviteConfig               `mapstructure:"invite"`
	Formats      FormatsConfig              `mapstructure:"formats"`
	PhoneRegions []models.PhoneRegionFormat `mapstructure:"phone_regions"`
	History      HistoryConfig              `mapstructure:"history"`
}

// AuthentikConfig describes the identity-backend connection.
type AuthentikConfig struct {
	// URL is the backend's public host, e.g. "auth.example.com".
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EmailConfig captures the outbound submission settings.
type EmailConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines the authenticated SMTP submission session.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	FromName string        `mapstructure:"from_name"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Category string        `mapstructure:"category"`
}

// InviteConfig controls invitation issuance and the rendered email.
type InviteConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	OrgName string        `mapstructure:"org_name"`
	Subject string        `mapstructure:"subject"`

	ElevatedAccessGroup  string `mapstructure:"elevated_access_group"`
	ElevatedInstructions string `mapstructure:"elevated_instructions"`
	MediaServiceGroup    string `mapstructure:"media_service_group"`
	MediaServiceName     string `mapstructure:"media_service_name"`
}

// FormatsConfig holds the field-derivation formats.
type FormatsConfig struct {
	Username models.UsernameFormat `mapstructure:"username"`
}

// HistoryConfig controls the local attempt-history store.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig initialises application configuration using Viper with sensible
// defaults, reading config.yaml from ./config or the supplied paths, with
// INVITEKIT_* environment overrides.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("INVITEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate checks the loaded configuration and reports every problem at
// once rather than stopping at the first.
func (c *Config) Validate() error {
	var errs error

	if strings.TrimSpace(c.Authentik.URL) == "" {
		errs = multierr.Append(errs, errors.New("config: authentik.url is required"))
	}
	if strings.TrimSpace(c.Authentik.Token) == "" {
		errs = multierr.Append(errs, errors.New("config: authentik.token is required"))
	}

	if err := c.Formats.Username.Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("config: %w", err))
	}

	for _, region := range c.PhoneRegions {
		if err := region.Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("config: %w", err))
		}
	}

	if c.Email.SMTP.Enabled {
		if strings.TrimSpace(c.Email.SMTP.From) == "" {
			errs = multierr.Append(errs, errors.New("config: email.smtp.from is required when smtp is enabled"))
		}
	}

	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		errs = multierr.Append(errs, errors.New("config: history.path is required when history is enabled"))
	}

	return errs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("authentik.timeout", "30s")

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "live.smtp.mailtrap.io")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "api")
	v.SetDefault("email.smtp.use_tls", false)
	v.SetDefault("email.smtp.timeout", "10s")
	v.SetDefault("email.smtp.category", "onboarding")

	v.SetDefault("invite.ttl", "336h") // 14 days
	v.SetDefault("invite.org_name", "the homelab")
	v.SetDefault("invite.media_service_name", "the media service")

	v.SetDefault("formats.username.first", "initial")
	v.SetDefault("formats.username.middle", "omit")
	v.SetDefault("formats.username.last", "full")
	v.SetDefault("formats.username.separator", "")

	v.SetDefault("phone_regions", []map[string]any{
		{
			"code":      "1",
			"countries": []string{"United States", "Canada"},
			"length":    10,
			"grouping":  []int{3, 3, 4},
			"divider":   "-",
		},
	})

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "./data/invitekit.sqlite")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
