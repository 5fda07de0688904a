package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/dtos"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type TrackedJobService struct {
	DB  *gorm.DB
	now func() time.Time
	log *logger.Logger
}

func NewTrackedJobService(db *gorm.DB, now func() time.Time, log *logger.Logger) *TrackedJobService {
	if now == nil {
		now = time.Now
	}
	return &TrackedJobService{DB: db, now: now, log: log.With("service", "TrackedJobService")}
}

// trackedJobRow is the flat result of the tracked-job join.
type trackedJobRow struct {
	TrackedJobID     uint
	JobID            uint
	JobTitle         string
	CompanyName      string
	JobURL           string
	Status           string
	UserNotes        *string
	AppliedAt        *time.Time
	CreatedAt        time.Time
	IsExcited        bool
	JobPostingStatus string
	LastCheckedAt    *time.Time
	StatusReason     *string
	FirstInterviewAt *time.Time
	OfferReceivedAt  *time.Time
	ResolvedAt       *time.Time
	NextActionAt     *time.Time
	NextActionNotes  *string

	AnalysisJobID           *uint
	PositionRelevanceScore  *int
	EnvironmentFitScore     *int
	HiringManagerView       *string
	MatrixRating            *string
	Summary                 *string
	QualificationGaps       datatypes.JSONSlice[string]
	RecommendedTestimonials datatypes.JSONSlice[string]
}

func trackedJobViewQuery(tx *gorm.DB) *gorm.DB {
	return tx.Table("tracked_jobs AS tj").
		Select(`tj.id AS tracked_job_id,
			j.id AS job_id,
			j.job_title AS job_title,
			COALESCE(c.name, j.company_name) AS company_name,
			jo.url AS job_url,
			tj.status AS status,
			tj.user_notes AS user_notes,
			tj.applied_at AS applied_at,
			tj.created_at AS created_at,
			tj.is_excited AS is_excited,
			j.status AS job_posting_status,
			j.last_checked_at AS last_checked_at,
			tj.status_reason AS status_reason,
			tj.first_interview_at AS first_interview_at,
			tj.offer_received_at AS offer_received_at,
			tj.resolved_at AS resolved_at,
			tj.next_action_at AS next_action_at,
			tj.next_action_notes AS next_action_notes,
			ja.job_id AS analysis_job_id,
			ja.position_relevance_score AS position_relevance_score,
			ja.environment_fit_score AS environment_fit_score,
			ja.hiring_manager_view AS hiring_manager_view,
			ja.matrix_rating AS matrix_rating,
			ja.summary AS summary,
			COALESCE(ja.qualification_gaps, '[]') AS qualification_gaps,
			COALESCE(ja.recommended_testimonials, '[]') AS recommended_testimonials`).
		Joins("JOIN job_opportunities AS jo ON jo.id = tj.job_opportunity_id").
		Joins("JOIN jobs AS j ON j.id = jo.job_id").
		Joins("LEFT JOIN companies AS c ON c.id = j.company_id").
		Joins("LEFT JOIN job_analyses AS ja ON ja.job_id = j.id AND ja.user_id = tj.user_id")
}

// FormatTrackedJob projects a joined row onto the public view.
func FormatTrackedJob(r trackedJobRow) dtos.TrackedJobView {
	v := dtos.TrackedJobView{
		TrackedJobID:     r.TrackedJobID,
		JobID:            r.JobID,
		JobTitle:         r.JobTitle,
		CompanyName:      r.CompanyName,
		JobURL:           r.JobURL,
		Status:           r.Status,
		UserNotes:        r.UserNotes,
		AppliedAt:        r.AppliedAt,
		CreatedAt:        r.CreatedAt,
		IsExcited:        r.IsExcited,
		JobPostingStatus: r.JobPostingStatus,
		LastCheckedAt:    r.LastCheckedAt,
		StatusReason:     r.StatusReason,
		FirstInterviewAt: r.FirstInterviewAt,
		OfferReceivedAt:  r.OfferReceivedAt,
		ResolvedAt:       r.ResolvedAt,
		NextActionAt:     r.NextActionAt,
		NextActionNotes:  r.NextActionNotes,
	}
	if r.AnalysisJobID != nil {
		v.AIAnalysis = &dtos.AIAnalysisView{
			PositionRelevanceScore:  deref(r.PositionRelevanceScore),
			EnvironmentFitScore:     deref(r.EnvironmentFitScore),
			HiringManagerView:       deref(r.HiringManagerView),
			MatrixRating:            deref(r.MatrixRating),
			Summary:                 deref(r.Summary),
			QualificationGaps:       nonNil(r.QualificationGaps),
			RecommendedTestimonials: nonNil(r.RecommendedTestimonials),
		}
	}
	return v
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Get returns one tracked job owned by userID.
func (s *TrackedJobService) Get(ctx context.Context, tx *gorm.DB, userID, trackedJobID uint) (*dtos.TrackedJobView, error) {
	if tx == nil {
		tx = s.DB
	}
	var rows []trackedJobRow
	if err := trackedJobViewQuery(tx.WithContext(ctx)).
		Where("tj.id = ? AND tj.user_id = ?", trackedJobID, userID).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, NewInternalError("Failed to load tracked job.", err)
	}
	if len(rows) == 0 {
		return nil, NewNotFoundError("Tracked job not found.")
	}
	v := FormatTrackedJob(rows[0])
	return &v, nil
}

func (s *TrackedJobService) List(ctx context.Context, userID uint, page, limit int) (*dtos.TrackedJobList, error) {
	if page < 1 {
		return nil, NewInputError("page must be a positive integer.")
	}
	if limit < 1 || limit > MaxPageLimit {
		return nil, NewInputError(fmt.Sprintf("limit must be between 1 and %d.", MaxPageLimit))
	}

	db := s.DB.WithContext(ctx)
	var total int64
	if err := db.Model(&models.TrackedJob{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, NewInternalError("Failed to count tracked jobs.", err)
	}

	var rows []trackedJobRow
	if err := trackedJobViewQuery(db).
		Where("tj.user_id = ?", userID).
		Order("tj.created_at DESC, tj.id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, NewInternalError("Failed to list tracked jobs.", err)
	}

	out := &dtos.TrackedJobList{
		TrackedJobs: make([]dtos.TrackedJobView, 0, len(rows)),
		TotalCount:  total,
		Page:        page,
		Limit:       limit,
	}
	for _, r := range rows {
		out.TrackedJobs = append(out.TrackedJobs, FormatTrackedJob(r))
	}
	return out, nil
}

var trackedJobTextFields = map[string]bool{
	"user_notes":        true,
	"status_reason":     true,
	"next_action_notes": true,
}

var trackedJobTimeFields = map[string]bool{
	"first_interview_at": true,
	"offer_received_at":  true,
	"resolved_at":        true,
	"next_action_at":     true,
}

// ParseTrackedJobPatch validates a partial update body. Unknown keys are
// ignored; a body with no recognised field is rejected.
func ParseTrackedJobPatch(raw map[string]json.RawMessage) (map[string]any, error) {
	patch := map[string]any{}
	for key, val := range raw {
		isNull := strings.TrimSpace(string(val)) == "null"
		switch {
		case key == "status":
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return nil, NewInputError("status must be a string.")
			}
			status := models.TrackedJobStatus(strings.ToUpper(strings.TrimSpace(s)))
			if !status.Valid() {
				return nil, NewInputError(fmt.Sprintf("Invalid status %q.", s))
			}
			patch[key] = status
		case key == "is_excited":
			var b bool
			if err := json.Unmarshal(val, &b); err != nil {
				return nil, NewInputError("is_excited must be a boolean.")
			}
			patch[key] = b
		case trackedJobTextFields[key]:
			if isNull {
				patch[key] = nil
				continue
			}
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return nil, NewInputError(key + " must be a string.")
			}
			patch[key] = s
		case trackedJobTimeFields[key]:
			if isNull {
				patch[key] = nil
				continue
			}
			var t time.Time
			if err := json.Unmarshal(val, &t); err != nil {
				return nil, NewInputError(key + " must be an RFC 3339 timestamp.")
			}
			patch[key] = t
		}
	}
	if len(patch) == 0 {
		return nil, NewInputError("No valid fields to update.")
	}
	return patch, nil
}

// applyStatusTransition adds the timestamp side effects of moving tj to next.
// Explicit values already present in updates win.
func applyStatusTransition(tj *models.TrackedJob, next models.TrackedJobStatus, now time.Time, updates map[string]any) {
	updates["status"] = string(next)

	setOnce := func(key string, current *time.Time) {
		if _, explicit := updates[key]; !explicit && current == nil {
			updates[key] = now
		}
	}

	if next == models.TrackedApplied {
		setOnce("applied_at", tj.AppliedAt)
	} else if tj.Status == models.TrackedApplied {
		updates["applied_at"] = nil
	}

	switch next {
	case models.TrackedInterviewing:
		setOnce("first_interview_at", tj.FirstInterviewAt)
	case models.TrackedOfferNegotiations:
		setOnce("offer_received_at", tj.OfferReceivedAt)
	case models.TrackedOfferAccepted, models.TrackedRejected, models.TrackedWithdrawn:
		setOnce("resolved_at", tj.ResolvedAt)
	}
}

func (s *TrackedJobService) Update(ctx context.Context, userID, trackedJobID uint, patch map[string]any) (*dtos.TrackedJobView, error) {
	var view *dtos.TrackedJobView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tj models.TrackedJob
		if err := tx.Where("id = ? AND user_id = ?", trackedJobID, userID).First(&tj).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("Tracked job not found.")
			}
			return err
		}

		updates := make(map[string]any, len(patch)+2)
		for k, v := range patch {
			if k != "status" {
				updates[k] = v
			}
		}
		if next, ok := patch["status"].(models.TrackedJobStatus); ok && next != tj.Status {
			applyStatusTransition(&tj, next, s.now(), updates)
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.TrackedJob{}).Where("id = ?", tj.ID).Updates(updates).Error; err != nil {
				return err
			}
		}

		v, err := s.Get(ctx, tx, userID, trackedJobID)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "Failed to update tracked job.")
	}
	return view, nil
}

func (s *TrackedJobService) Delete(ctx context.Context, userID, trackedJobID uint) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", trackedJobID, userID).
		Delete(&models.TrackedJob{})
	if res.Error != nil {
		return NewInternalError("Failed to delete tracked job.", res.Error)
	}
	if res.RowsAffected == 0 {
		return NewNotFoundError("Tracked job not found.")
	}
	return nil
}

// asAppError passes typed errors through and wraps everything else as internal.
func asAppError(err error, message string) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(message, err)
}
