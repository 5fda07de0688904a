package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileService struct {
	DB  *gorm.DB
	log *logger.Logger
}

func NewProfileService(db *gorm.DB, log *logger.Logger) *ProfileService {
	return &ProfileService{DB: db, log: log.With("service", "ProfileService")}
}

// Get loads the profile without creating one.
func (s *ProfileService) Get(ctx context.Context, userID uint) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, profileNotFound()
	}
	if err != nil {
		return nil, NewInternalError("Failed to load profile.", err)
	}
	return &p, nil
}

// GetOrCreate returns the user's profile, inserting an empty one if needed.
func (s *ProfileService) GetOrCreate(ctx context.Context, userID uint) (*models.UserProfile, error) {
	db := s.DB.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&models.UserProfile{UserID: userID}).Error; err != nil {
		return nil, NewInternalError("Failed to create profile.", err)
	}
	return s.Get(ctx, userID)
}

var profileTextFields = map[string]bool{
	"full_name":              true,
	"short_term_career_goal": true,
	"ideal_role_description": true,
	"core_strengths":         true,
	"skills_to_avoid":        true,
	"preferred_industries":   true,
	"industries_to_avoid":    true,
	"desired_title":          true,
	"non_negotiables":        true,
	"deal_breakers":          true,
}

var profileEnumFields = map[string][]string{
	"preferred_work_style":   models.WorkStyles,
	"preferred_company_size": models.CompanySizes,
}

// ParseProfilePatch validates a partial profile body and rejects unknown keys.
// Blank strings clear a field.
func ParseProfilePatch(raw map[string]json.RawMessage) (map[string]any, error) {
	patch := map[string]any{}
	for key, val := range raw {
		isNull := strings.TrimSpace(string(val)) == "null"
		switch {
		case profileTextFields[key]:
			if isNull {
				patch[key] = nil
				continue
			}
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return nil, NewInputError(key + " must be a string.")
			}
			if s = strings.TrimSpace(s); s == "" {
				patch[key] = nil
			} else {
				patch[key] = s
			}
		case profileEnumFields[key] != nil:
			if isNull {
				patch[key] = nil
				continue
			}
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return nil, NewInputError(key + " must be a string.")
			}
			canonical, ok := models.OneOf(profileEnumFields[key], s)
			if !ok {
				return nil, NewInputError(fmt.Sprintf("Invalid %s %q. Allowed: %s.", key, s, strings.Join(profileEnumFields[key], ", ")))
			}
			patch[key] = canonical
		case key == "is_remote_preferred":
			if isNull {
				patch[key] = nil
				continue
			}
			var b bool
			if err := json.Unmarshal(val, &b); err != nil {
				return nil, NewInputError("is_remote_preferred must be a boolean.")
			}
			patch[key] = b
		case key == "has_completed_onboarding":
			var b bool
			if err := json.Unmarshal(val, &b); err != nil {
				return nil, NewInputError("has_completed_onboarding must be a boolean.")
			}
			patch[key] = b
		default:
			return nil, NewInputError(fmt.Sprintf("Unknown profile field %q.", key))
		}
	}
	if len(patch) == 0 {
		return nil, NewInputError("No valid fields to update.")
	}
	return patch, nil
}

func (s *ProfileService) Update(ctx context.Context, userID uint, patch map[string]any) (*models.UserProfile, error) {
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).
		Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(patch).Error; err != nil {
		return nil, NewInternalError("Failed to update profile.", err)
	}
	return s.Get(ctx, userID)
}
