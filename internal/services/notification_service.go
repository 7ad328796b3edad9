package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/noahsroberts/invitekit/internal/models"
	"github.com/noahsroberts/invitekit/pkg/mail"
)

// onboardingTemplate is the fixed message body. The two conditional sections
// are keyed on the configured elevated-access and media-service groups.
const onboardingTemplate = `Welcome to {{.OrgName}}!

Below is the link to activate your new account. Before you click it, please
read the following:

* The username you are given cannot be easily changed.
* The email this message was sent to becomes the primary address on your
  account. Password resets and service notifications go there. It can be
  changed later in the account settings.

Clicking the enrollment link will create a new user with this information:
- Name: {{.FullName}}
- Username: {{.Username}}
- Email: {{.Email}}
{{- if .Phone}}
- Phone: {{.Phone}}
{{- end}}
{{- if .ElevatedAccess}}

You have been granted elevated access. Set it up as follows:
{{.ElevatedInstructions}}
{{- end}}
{{- if .MediaService}}

Your account also includes the media service ({{.MediaServiceName}}). It uses
a separate invitation which is sent manually; expect it in a follow-up
message to this same address.
{{- end}}

===
The enrollment link walks you through a brief setup before showing your
dashboard.

Invite link: {{.InviteLink}}
Expires: {{.Expires}}
===

If you did not expect this email, you can ignore it.
`

// NotificationConfig carries the rendering inputs that do not change per
// invitation.
type NotificationConfig struct {
	// AuthHost is the backend's public host used in the enrollment link.
	AuthHost    string
	FromAddress string
	FromName    string
	Subject     string
	Category    string
	OrgName     string

	// ElevatedAccessGroup gates the extra setup-instructions section.
	ElevatedAccessGroup  string
	ElevatedInstructions string
	// MediaServiceGroup gates the manual-invitation note.
	MediaServiceGroup string
	MediaServiceName  string
}

// NotificationService renders the onboarding email for an invitation and
// hands it to the mail collaborator. It decides content only: a failed
// dispatch is returned to the caller, never retried here.
type NotificationService struct {
	mailer mail.Mailer
	cfg    NotificationConfig
	tmpl   *template.Template
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(mailer mail.Mailer, cfg NotificationConfig) (*NotificationService, error) {
	if mailer == nil {
		return nil, errors.New("notification service: mailer is required")
	}
	if strings.TrimSpace(cfg.AuthHost) == "" {
		return nil, errors.New("notification service: auth host is required")
	}
	if strings.TrimSpace(cfg.FromAddress) == "" {
		return nil, errors.New("notification service: from address is required")
	}

	tmpl, err := template.New("onboarding").Parse(onboardingTemplate)
	if err != nil {
		return nil, fmt.Errorf("notification service: parse template: %w", err)
	}

	return &NotificationService{
		mailer: mailer,
		cfg:    cfg,
		tmpl:   tmpl,
	}, nil
}

// InviteLink builds the enrollment link for an invitation:
// https://{authHost}/if/flow/{slug}/?itoken={invitation id}.
func (s *NotificationService) InviteLink(invitation models.Invitation, flow models.EnrollmentFlow) string {
	host := strings.TrimPrefix(strings.TrimPrefix(s.cfg.AuthHost, "https://"), "http://")
	host = strings.TrimRight(host, "/")
	return fmt.Sprintf("https://%s/if/flow/%s/?itoken=%s", host, flow.Slug, invitation.ID)
}

// Compose renders the full onboarding message for the profile.
func (s *NotificationService) Compose(profile models.UserProfile, invitation models.Invitation, flow models.EnrollmentFlow) (mail.Message, error) {
	var body strings.Builder
	err := s.tmpl.Execute(&body, struct {
		OrgName              string
		FullName             string
		Username             string
		Email                string
		Phone                string
		ElevatedAccess       bool
		ElevatedInstructions string
		MediaService         bool
		MediaServiceName     string
		InviteLink           string
		Expires              string
	}{
		OrgName:              s.cfg.OrgName,
		FullName:             profile.FullName(),
		Username:             profile.Username,
		Email:                profile.Email,
		Phone:                profile.Phone,
		ElevatedAccess:       s.cfg.ElevatedAccessGroup != "" && profile.HasGroup(s.cfg.ElevatedAccessGroup),
		ElevatedInstructions: s.cfg.ElevatedInstructions,
		MediaService:         s.cfg.MediaServiceGroup != "" && profile.HasGroup(s.cfg.MediaServiceGroup),
		MediaServiceName:     s.cfg.MediaServiceName,
		InviteLink:           s.InviteLink(invitation, flow),
		Expires:              invitation.Expires.Format(time.RFC1123),
	})
	if err != nil {
		return mail.Message{}, fmt.Errorf("notification service: render body: %w", err)
	}

	subject := s.cfg.Subject
	if subject == "" {
		subject = fmt.Sprintf("Welcome to %s!", s.cfg.OrgName)
	}

	return mail.Message{
		From:     s.cfg.FromAddress,
		FromName: s.cfg.FromName,
		To:       profile.Email,
		ToName:   profile.FullName(),
		Subject:  subject,
		Category: s.cfg.Category,
		Body:     body.String(),
	}, nil
}

// Notify composes and dispatches the onboarding email.
func (s *NotificationService) Notify(ctx context.Context, profile models.UserProfile, invitation models.Invitation, flow models.EnrollmentFlow) error {
	msg, err := s.Compose(profile, invitation, flow)
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("notification service: send email: %w", err)
	}
	return nil
}
