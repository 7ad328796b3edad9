package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/noahsroberts/invitekit/internal/models"
)

// HistoryService keeps a local record of provisioning attempts. The backend
// stays the source of truth for invitations; this is an operator audit trail
// that makes partially failed attempts (invited but not notified) easy to
// find and remediate.
type HistoryService struct {
	db *gorm.DB
}

// NewHistoryService constructs a HistoryService and migrates its schema.
func NewHistoryService(db *gorm.DB) (*HistoryService, error) {
	if db == nil {
		return nil, errors.New("history service: db is required")
	}
	if err := db.AutoMigrate(&models.ProvisionAttempt{}); err != nil {
		return nil, fmt.Errorf("history service: migrate: %w", err)
	}
	return &HistoryService{db: db}, nil
}

// Record persists one attempt outcome.
func (s *HistoryService) Record(ctx context.Context, attempt *models.ProvisionAttempt) error {
	if attempt == nil {
		return errors.New("history service: attempt is required")
	}
	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("history service: create attempt: %w", err)
	}
	return nil
}

// List returns attempts ordered most recent first, optionally filtered to a
// single state. A non-positive limit returns everything.
func (s *HistoryService) List(ctx context.Context, state string, limit int) ([]models.ProvisionAttempt, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")

	if state = strings.TrimSpace(state); state != "" {
		query = query.Where("state = ?", state)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var attempts []models.ProvisionAttempt
	if err := query.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("history service: list attempts: %w", err)
	}
	return attempts, nil
}

// FindByUsername returns the attempts recorded for one username, most
// recent first.
func (s *HistoryService) FindByUsername(ctx context.Context, username string) ([]models.ProvisionAttempt, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("history service: username is required")
	}

	var attempts []models.ProvisionAttempt
	if err := s.db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at DESC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("history service: find attempts: %w", err)
	}
	return attempts, nil
}
