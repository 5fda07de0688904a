package services

import (
	"context"
	"strings"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	DB  *gorm.DB
	log *logger.Logger
}

func NewUserService(db *gorm.DB, log *logger.Logger) *UserService {
	return &UserService{DB: db, log: log.With("service", "UserService")}
}

// EnsureUser returns the local user for an identity-provider subject,
// creating it on first sight. Concurrent first requests converge on one row.
func (s *UserService) EnsureUser(ctx context.Context, externalID string) (*models.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, NewInputError("Missing user identity.")
	}
	db := s.DB.WithContext(ctx)

	user := models.User{ExternalIdentityID: externalID}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_identity_id"}},
		DoNothing: true,
	}).Create(&user)
	if res.Error != nil {
		return nil, NewInternalError("Failed to provision user.", res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.Info("Provisioned new user", "user_id", user.ID)
	}

	var stored models.User
	if err := db.Where("external_identity_id = ?", externalID).First(&stored).Error; err != nil {
		return nil, NewInternalError("Failed to load user.", err)
	}
	return &stored, nil
}
