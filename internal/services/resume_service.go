package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
	"gorm.io/gorm"
)

const (
	minResumeLength = 100
	maxResumeLength = 100000
)

type ResumeService struct {
	DB         *gorm.DB
	classifier *Classifier
	log        *logger.Logger
}

func NewResumeService(db *gorm.DB, classifier *Classifier, log *logger.Logger) *ResumeService {
	return &ResumeService{DB: db, classifier: classifier, log: log.With("service", "ResumeService")}
}

// Submit stores a new résumé as the user's only active one.
func (s *ResumeService) Submit(ctx context.Context, userID uint, text string) (*models.ResumeSubmission, error) {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < minResumeLength {
		return nil, insufficientContent("The resume text is too short.")
	}
	if n > maxResumeLength {
		return nil, NewInputError("The resume text is too long.")
	}
	if !s.classifier.IsResume(ctx, text) {
		return nil, notAResume()
	}

	row := models.ResumeSubmission{UserID: userID, ResumeText: text, IsActive: true}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ResumeSubmission{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, NewInternalError("Failed to save resume.", err)
	}
	s.log.Info("Resume stored", "user_id", userID, "resume_id", row.ID)
	return &row, nil
}

func (s *ResumeService) GetActive(ctx context.Context, userID uint) (*models.ResumeSubmission, error) {
	var row models.ResumeSubmission
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("No resume on file.")
	}
	if err != nil {
		return nil, NewInternalError("Failed to load resume.", err)
	}
	return &row, nil
}
