package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/noahsroberts/invitekit/internal/app"
	"github.com/noahsroberts/invitekit/internal/authentik"
	"github.com/noahsroberts/invitekit/internal/database"
	"github.com/noahsroberts/invitekit/internal/services"
	"github.com/noahsroberts/invitekit/pkg/logger"
	"github.com/noahsroberts/invitekit/pkg/mail"
)

// runtime bundles the wired collaborators for a single process run.
type runtime struct {
	cfg         *app.Config
	backend     *authentik.Client
	provisioner *services.ProvisionService
	notifier    *services.NotificationService
	history     *services.HistoryService
	db          *gorm.DB
}

func buildRuntime(cfg *app.Config) (*runtime, error) {
	backend, err := authentik.NewClient(authentik.Config{
		Host:    cfg.Authentik.URL,
		Token:   cfg.Authentik.Token,
		Timeout: cfg.Authentik.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize backend client: %w", err)
	}

	rt := &runtime{cfg: cfg, backend: backend}

	opts := []services.ProvisionOption{
		services.WithInviteTTL(cfg.Invite.TTL),
	}

	if cfg.Email.SMTP.Enabled {
		mailer, err := mail.NewSubmissionMailer(mail.SubmissionSettings{
			Enabled:  cfg.Email.SMTP.Enabled,
			Host:     cfg.Email.SMTP.Host,
			Port:     cfg.Email.SMTP.Port,
			Username: cfg.Email.SMTP.Username,
			Password: cfg.Email.SMTP.Password,
			From:     cfg.Email.SMTP.From,
			FromName: cfg.Email.SMTP.FromName,
			UseTLS:   cfg.Email.SMTP.UseTLS,
			Timeout:  cfg.Email.SMTP.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize mailer: %w", err)
		}

		notifier, err := services.NewNotificationService(mailer, services.NotificationConfig{
			AuthHost:             cfg.Authentik.URL,
			FromAddress:          cfg.Email.SMTP.From,
			FromName:             cfg.Email.SMTP.FromName,
			Subject:              cfg.Invite.Subject,
			Category:             cfg.Email.SMTP.Category,
			OrgName:              cfg.Invite.OrgName,
			ElevatedAccessGroup:  cfg.Invite.ElevatedAccessGroup,
			ElevatedInstructions: cfg.Invite.ElevatedInstructions,
			MediaServiceGroup:    cfg.Invite.MediaServiceGroup,
			MediaServiceName:     cfg.Invite.MediaServiceName,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize notifier: %w", err)
		}
		rt.notifier = notifier
		opts = append(opts, services.WithNotifier(notifier))
	}

	if cfg.History.Enabled {
		db, err := database.Open(database.Config{Path: cfg.History.Path})
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		history, err := services.NewHistoryService(db)
		if err != nil {
			return nil, fmt.Errorf("initialize history store: %w", err)
		}
		rt.db = db
		rt.history = history
		opts = append(opts, services.WithRecorder(history))
	}

	provisioner, err := services.NewProvisionService(backend, cfg.Formats.Username, cfg.PhoneRegions, opts...)
	if err != nil {
		return nil, err
	}
	rt.provisioner = provisioner

	return rt, nil
}

// Close releases the history store. Safe to call on a partially built runtime.
func (r *runtime) Close() {
	if r == nil || r.db == nil {
		return
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("closing history store failed", zap.Error(err))
	}
}
