package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noahsroberts/invitekit/internal/models"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "auth.example.com", cfg.Authentik.URL)
	require.Equal(t, "test-api-token", cfg.Authentik.Token)
	require.Equal(t, 15*time.Second, cfg.Authentik.Timeout)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "live.smtp.mailtrap.io", cfg.Email.SMTP.Host)
	require.Equal(t, 587, cfg.Email.SMTP.Port)
	require.Equal(t, "api", cfg.Email.SMTP.Username)
	require.Equal(t, "invites@example.com", cfg.Email.SMTP.From)
	require.Equal(t, "onboarding", cfg.Email.SMTP.Category)

	require.Equal(t, 14*24*time.Hour, cfg.Invite.TTL)
	require.Equal(t, "the example lab", cfg.Invite.OrgName)
	require.Equal(t, "admins", cfg.Invite.ElevatedAccessGroup)
	require.Equal(t, "plexuser", cfg.Invite.MediaServiceGroup)
	require.Equal(t, "Plex", cfg.Invite.MediaServiceName)

	require.Equal(t, models.NameModeInitial, cfg.Formats.Username.First)
	require.Equal(t, models.NameModeOmit, cfg.Formats.Username.Middle)
	require.Equal(t, models.NameModeFull, cfg.Formats.Username.Last)
	require.Equal(t, "", cfg.Formats.Username.Separator)

	require.Len(t, cfg.PhoneRegions, 2)
	require.Equal(t, "1", cfg.PhoneRegions[0].Code)
	require.Equal(t, []int{3, 3, 4}, cfg.PhoneRegions[0].Grouping)
	require.Equal(t, "44", cfg.PhoneRegions[1].Code)
	require.Equal(t, " ", cfg.PhoneRegions[1].Divider)

	require.True(t, cfg.History.Enabled)
	require.Equal(t, "./data/history.sqlite", cfg.History.Path)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 30*time.Second, cfg.Authentik.Timeout)
	require.False(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "live.smtp.mailtrap.io", cfg.Email.SMTP.Host)
	require.Equal(t, 587, cfg.Email.SMTP.Port)
	require.Equal(t, 14*24*time.Hour, cfg.Invite.TTL)
	require.Equal(t, models.NameModeInitial, cfg.Formats.Username.First)

	require.Len(t, cfg.PhoneRegions, 1)
	require.Equal(t, "1", cfg.PhoneRegions[0].Code)
	require.Equal(t, 10, cfg.PhoneRegions[0].Length)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("INVITEKIT_AUTHENTIK_URL", "auth.override.example")
	t.Setenv("INVITEKIT_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "auth.override.example", cfg.Authentik.URL)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	// Defaults omit backend credentials on purpose.
	err = cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "authentik.url is required")
	require.Contains(t, err.Error(), "authentik.token is required")
}

func TestValidateRejectsBadRegionTable(t *testing.T) {
	cfg := &Config{
		Authentik: AuthentikConfig{URL: "auth.example.com", Token: "key"},
		Formats: FormatsConfig{Username: models.UsernameFormat{
			First: models.NameModeInitial, Middle: models.NameModeOmit, Last: models.NameModeFull,
		}},
		PhoneRegions: []models.PhoneRegionFormat{
			{Code: "1", Length: 10, Grouping: []int{3, 3}, Divider: "-"},
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "grouping sums to 6")
}
