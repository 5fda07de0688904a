package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/dtos"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
	"gorm.io/gorm"
)

const userSubmissionSource = "User Submission"

// JobService runs the submission pipeline: profile projection, fetch,
// classification and analysis outside the database, then one transaction
// that canonicalizes the posting and links it to the user.
type JobService struct {
	DB              *gorm.DB
	fetcher         Fetcher
	classifier      *Classifier
	analyzer        *Analyzer
	canon           *Canonicalizer
	profiles        *ProfileService
	trackedJobs     *TrackedJobService
	protocolVersion string
	now             func() time.Time
	log             *logger.Logger
}

type JobServiceDeps struct {
	Fetcher         Fetcher
	Classifier      *Classifier
	Analyzer        *Analyzer
	Canonicalizer   *Canonicalizer
	Profiles        *ProfileService
	TrackedJobs     *TrackedJobService
	ProtocolVersion string
	Now             func() time.Time
}

func NewJobService(db *gorm.DB, deps JobServiceDeps, log *logger.Logger) *JobService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &JobService{
		DB:              db,
		fetcher:         deps.Fetcher,
		classifier:      deps.Classifier,
		analyzer:        deps.Analyzer,
		canon:           deps.Canonicalizer,
		profiles:        deps.Profiles,
		trackedJobs:     deps.TrackedJobs,
		protocolVersion: deps.ProtocolVersion,
		now:             now,
		log:             log.With("service", "JobService"),
	}
}

// ValidateJobURL trims the input and requires an absolute http(s) URL.
func ValidateJobURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", NewInputError("job_url is required.")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", NewInputError("job_url must be an absolute http or https URL.")
	}
	return raw, nil
}

func (s *JobService) isTracking(ctx context.Context, userID uint, jobURL string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).
		Table("tracked_jobs AS tj").
		Joins("JOIN job_opportunities AS jo ON jo.id = tj.job_opportunity_id").
		Where("tj.user_id = ? AND jo.url = ?", userID, jobURL).
		Count(&n).Error
	return n > 0, err
}

// prepare produces the analysis for one posting and user without touching
// the database beyond reads.
func (s *JobService) prepare(ctx context.Context, userID uint, jobURL string) (*Analysis, string, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	profileText, err := ProjectProfile(profile)
	if err != nil {
		return nil, "", err
	}

	jobText, err := s.fetcher.Fetch(ctx, jobURL)
	if err != nil {
		return nil, "", err
	}
	if !s.classifier.IsJobPosting(ctx, jobText) {
		return nil, "", notAJobPosting()
	}

	analysis, err := s.analyzer.Analyze(ctx, jobText, profileText)
	if err != nil {
		return nil, "", err
	}
	return analysis, DescriptionHash(jobText), nil
}

// SubmitJob analyzes the posting at jobURL for userID and starts tracking it.
func (s *JobService) SubmitJob(ctx context.Context, userID uint, rawURL string) (*dtos.TrackedJobView, error) {
	jobURL, err := ValidateJobURL(rawURL)
	if err != nil {
		return nil, err
	}
	log := s.log.With("user_id", userID, "url", jobURL)

	tracking, err := s.isTracking(ctx, userID, jobURL)
	if err != nil {
		return nil, NewInternalError("Failed to check tracked jobs.", err)
	}
	if tracking {
		return nil, alreadyTracking()
	}

	analysis, hash, err := s.prepare(ctx, userID, jobURL)
	if err != nil {
		log.Info("Job submission rejected", "error", err)
		return nil, err
	}

	var view *dtos.TrackedJobView
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		companyID, err := s.canon.UpsertCompany(ctx, tx, analysis.CompanyName)
		if err != nil {
			return err
		}
		jobID, err := s.canon.UpsertJob(ctx, tx, JobUpsert{
			CompanyID:       companyID,
			CompanyName:     analysis.CompanyName,
			Title:           analysis.JobTitle,
			URL:             jobURL,
			Source:          userSubmissionSource,
			DescriptionHash: hash,
			Extracts:        analysis,
		})
		if err != nil {
			return err
		}
		oppID, err := s.canon.UpsertOpportunity(ctx, tx, jobID, jobURL, SourcePlatform(jobURL), analysis.Location)
		if err != nil {
			return err
		}
		if err := s.canon.UpsertAnalysis(ctx, tx, jobID, userID, analysis, s.protocolVersion); err != nil {
			return err
		}

		tracked := models.TrackedJob{
			UserID:           userID,
			JobOpportunityID: oppID,
			Status:           models.TrackedSaved,
		}
		if err := tx.Create(&tracked).Error; err != nil {
			if isUniqueViolation(err) {
				return alreadyTracking()
			}
			return err
		}

		v, err := s.trackedJobs.Get(ctx, tx, userID, tracked.ID)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyTracking) {
			return nil, err
		}
		log.Error("Job submission transaction failed", "error", err)
		return nil, asAppError(err, "Failed to save the analyzed job.")
	}

	log.Info("Job tracked", "tracked_job_id", view.TrackedJobID, "job_id", view.JobID, "matrix_rating", analysis.MatrixRating)
	return view, nil
}

// Reanalyze recomputes the user's analysis of an existing job and refreshes
// the job's extracted fields.
func (s *JobService) Reanalyze(ctx context.Context, userID, jobID uint, jobURL string) error {
	analysis, hash, err := s.prepare(ctx, userID, jobURL)
	if err != nil {
		return err
	}
	now := s.now()
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.canon.UpsertAnalysis(ctx, tx, jobID, userID, analysis, s.protocolVersion); err != nil {
			return err
		}
		updates := map[string]any{
			"job_title":            analysis.JobTitle,
			"job_description_hash": hash,
			"last_checked_at":      now,
		}
		setIfPresent(updates, "salary_min", analysis.SalaryMin)
		setIfPresent(updates, "salary_max", analysis.SalaryMax)
		setIfPresent(updates, "required_experience_years", analysis.RequiredExperienceYears)
		setIfPresent(updates, "job_modality", analysis.JobModality)
		setIfPresent(updates, "deduced_job_level", analysis.DeducedJobLevel)
		return tx.Model(&models.Job{}).Where("id = ?", jobID).Updates(updates).Error
	})
}
