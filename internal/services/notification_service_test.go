package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noahsroberts/invitekit/internal/models"
	"github.com/noahsroberts/invitekit/pkg/mail"
)

type captureMailer struct {
	sent []mail.Message
	err  error
}

func (m *captureMailer) Send(ctx context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func testNotificationConfig() NotificationConfig {
	return NotificationConfig{
		AuthHost:             "auth.example.com",
		FromAddress:          "invites@example.com",
		FromName:             "Authentik",
		Category:             "onboarding",
		OrgName:              "the example lab",
		ElevatedAccessGroup:  "admins",
		ElevatedInstructions: "1. Install the client.\n2. Sign in with this email.",
		MediaServiceGroup:    "plexuser",
		MediaServiceName:     "Plex",
	}
}

func testInvitation() models.Invitation {
	return models.Invitation{
		ID:      "7a3d87ee-60be-444d-9bd3-3851c25697cf",
		Name:    "nroberts-invite",
		Expires: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestInviteLinkShape(t *testing.T) {
	svc, err := NewNotificationService(&captureMailer{}, testNotificationConfig())
	require.NoError(t, err)

	link := svc.InviteLink(testInvitation(), testFlow)
	require.Equal(t,
		"https://auth.example.com/if/flow/default-enrollment/?itoken=7a3d87ee-60be-444d-9bd3-3851c25697cf",
		link)
}

func TestInviteLinkStripsScheme(t *testing.T) {
	cfg := testNotificationConfig()
	cfg.AuthHost = "https://auth.example.com/"

	svc, err := NewNotificationService(&captureMailer{}, cfg)
	require.NoError(t, err)

	link := svc.InviteLink(testInvitation(), testFlow)
	require.Equal(t,
		"https://auth.example.com/if/flow/default-enrollment/?itoken=7a3d87ee-60be-444d-9bd3-3851c25697cf",
		link)
}

func TestComposeInterpolatesProfile(t *testing.T) {
	svc, err := NewNotificationService(&captureMailer{}, testNotificationConfig())
	require.NoError(t, err)

	profile := models.UserProfile{
		FirstName: "Noah",
		LastName:  "Roberts",
		Username:  "nroberts",
		Email:     "noah@example.com",
		Phone:     "1 406-217-3981",
		Groups:    []string{"users"},
	}

	msg, err := svc.Compose(profile, testInvitation(), testFlow)
	require.NoError(t, err)

	require.Equal(t, "noah@example.com", msg.To)
	require.Equal(t, "Noah Roberts", msg.ToName)
	require.Equal(t, "invites@example.com", msg.From)
	require.Equal(t, "onboarding", msg.Category)
	require.Equal(t, "Welcome to the example lab!", msg.Subject)

	require.Contains(t, msg.Body, "Name: Noah Roberts")
	require.Contains(t, msg.Body, "Username: nroberts")
	require.Contains(t, msg.Body, "Email: noah@example.com")
	require.Contains(t, msg.Body, "Phone: 1 406-217-3981")
	require.Contains(t, msg.Body, "itoken=7a3d87ee-60be-444d-9bd3-3851c25697cf")
	require.Contains(t, msg.Body, "Expires: Fri, 15 Mar 2024 10:00:00 UTC")
}

func TestComposeOmitsEmptyPhone(t *testing.T) {
	svc, err := NewNotificationService(&captureMailer{}, testNotificationConfig())
	require.NoError(t, err)

	msg, err := svc.Compose(models.UserProfile{
		FirstName: "Noah", LastName: "Roberts",
		Username: "nroberts", Email: "noah@example.com",
	}, testInvitation(), testFlow)
	require.NoError(t, err)
	require.NotContains(t, msg.Body, "Phone:")
}

func TestComposeConditionalSections(t *testing.T) {
	svc, err := NewNotificationService(&captureMailer{}, testNotificationConfig())
	require.NoError(t, err)

	base := models.UserProfile{
		FirstName: "Noah", LastName: "Roberts",
		Username: "nroberts", Email: "noah@example.com",
	}

	plain, err := svc.Compose(base, testInvitation(), testFlow)
	require.NoError(t, err)
	require.NotContains(t, plain.Body, "elevated access")
	require.NotContains(t, plain.Body, "media service")

	elevated := base
	elevated.Groups = []string{"admins"}
	msg, err := svc.Compose(elevated, testInvitation(), testFlow)
	require.NoError(t, err)
	require.Contains(t, msg.Body, "elevated access")
	require.Contains(t, msg.Body, "Install the client")
	require.NotContains(t, msg.Body, "media service")

	media := base
	media.Groups = []string{"plexuser"}
	msg, err = svc.Compose(media, testInvitation(), testFlow)
	require.NoError(t, err)
	require.Contains(t, msg.Body, "media service (Plex)")
	require.Contains(t, msg.Body, "sent manually")
	require.NotContains(t, msg.Body, "elevated access")
}

func TestNotifyDispatchesOnce(t *testing.T) {
	mailer := &captureMailer{}
	svc, err := NewNotificationService(mailer, testNotificationConfig())
	require.NoError(t, err)

	profile := models.UserProfile{
		FirstName: "Noah", LastName: "Roberts",
		Username: "nroberts", Email: "noah@example.com",
	}

	require.NoError(t, svc.Notify(context.Background(), profile, testInvitation(), testFlow))
	require.Len(t, mailer.sent, 1)
}

func TestNotifyReturnsDispatchError(t *testing.T) {
	mailer := &captureMailer{err: errors.New("smtp down")}
	svc, err := NewNotificationService(mailer, testNotificationConfig())
	require.NoError(t, err)

	err = svc.Notify(context.Background(), models.UserProfile{
		FirstName: "Noah", LastName: "Roberts",
		Username: "nroberts", Email: "noah@example.com",
	}, testInvitation(), testFlow)
	require.Error(t, err)
	require.Contains(t, err.Error(), "smtp down")
}

func TestNewNotificationServiceValidatesConfig(t *testing.T) {
	_, err := NewNotificationService(nil, testNotificationConfig())
	require.Error(t, err)

	cfg := testNotificationConfig()
	cfg.AuthHost = ""
	_, err = NewNotificationService(&captureMailer{}, cfg)
	require.Error(t, err)

	cfg = testNotificationConfig()
	cfg.FromAddress = ""
	_, err = NewNotificationService(&captureMailer{}, cfg)
	require.Error(t, err)
}
