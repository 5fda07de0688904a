package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Canonicalizer maps observed company names, posting URLs and content hashes
// onto stable company, job and opportunity rows. Every method is an upsert and
// safe to repeat; all of them run on the caller's transaction.
type Canonicalizer struct {
	now func() time.Time
}

func NewCanonicalizer(now func() time.Time) *Canonicalizer {
	if now == nil {
		now = time.Now
	}
	return &Canonicalizer{now: now}
}

func NormalizeCompanyName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// DescriptionHash fingerprints posting text independent of case and spacing.
func DescriptionHash(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.Join(strings.Fields(text), " "))))
	return hex.EncodeToString(sum[:])
}

// SourcePlatform is the posting host without a leading "www.".
func SourcePlatform(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func (c *Canonicalizer) UpsertCompany(ctx context.Context, tx *gorm.DB, name string) (uint, error) {
	name = strings.Join(strings.Fields(name), " ")
	normalized := NormalizeCompanyName(name)
	if normalized == "" {
		return 0, errors.New("company name is empty")
	}

	company := models.Company{Name: name, NameNormalized: normalized}
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name_normalized"}},
			DoNothing: true,
		}).
		Create(&company).Error; err != nil {
		return 0, err
	}

	var existing models.Company
	if err := tx.WithContext(ctx).
		Where("name_normalized = ?", normalized).
		First(&existing).Error; err != nil {
		return 0, err
	}
	return existing.ID, nil
}

type JobUpsert struct {
	CompanyID       uint
	CompanyName     string
	Title           string
	URL             string
	Source          string
	DescriptionHash string
	Extracts        *Analysis
}

// UpsertJob resolves the canonical job for a posting. A URL already known as
// an opportunity keeps its job; otherwise a same-company job with an identical
// description hash is reused; otherwise the job is inserted keyed on URL.
func (c *Canonicalizer) UpsertJob(ctx context.Context, tx *gorm.DB, in JobUpsert) (uint, error) {
	now := c.now()
	updates := map[string]any{
		"company_id":      in.CompanyID,
		"company_name":    in.CompanyName,
		"job_title":       in.Title,
		"status":          string(models.JobStatusActive),
		"last_checked_at": now,
		"updated_at":      now,
	}
	if in.DescriptionHash != "" {
		updates["job_description_hash"] = in.DescriptionHash
	}
	if a := in.Extracts; a != nil {
		setIfPresent(updates, "salary_min", a.SalaryMin)
		setIfPresent(updates, "salary_max", a.SalaryMax)
		setIfPresent(updates, "required_experience_years", a.RequiredExperienceYears)
		setIfPresent(updates, "job_modality", a.JobModality)
		setIfPresent(updates, "deduced_job_level", a.DeducedJobLevel)
	}

	var opp models.JobOpportunity
	err := tx.WithContext(ctx).Where("url = ?", in.URL).First(&opp).Error
	switch {
	case err == nil:
		return opp.JobID, c.updateJob(ctx, tx, opp.JobID, updates)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return 0, err
	}

	if in.DescriptionHash != "" {
		var twin models.Job
		err := tx.WithContext(ctx).
			Where("job_description_hash = ? AND company_id = ?", in.DescriptionHash, in.CompanyID).
			Order("id").
			First(&twin).Error
		switch {
		case err == nil:
			return twin.ID, c.updateJob(ctx, tx, twin.ID, updates)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return 0, err
		}
	}

	job := models.Job{
		CompanyID:          in.CompanyID,
		CompanyName:        in.CompanyName,
		JobTitle:           in.Title,
		URL:                in.URL,
		Source:             in.Source,
		Status:             models.JobStatusActive,
		FoundAt:            now,
		LastCheckedAt:      &now,
		JobDescriptionHash: in.DescriptionHash,
	}
	if a := in.Extracts; a != nil {
		job.SalaryMin = a.SalaryMin
		job.SalaryMax = a.SalaryMax
		job.RequiredExperienceYears = a.RequiredExperienceYears
		job.JobModality = a.JobModality
		job.DeducedJobLevel = a.DeducedJobLevel
	}
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "url"}},
			DoUpdates: clause.Assignments(updates),
		}).
		Create(&job).Error; err != nil {
		return 0, err
	}

	var stored models.Job
	if err := tx.WithContext(ctx).Where("url = ?", in.URL).First(&stored).Error; err != nil {
		return 0, err
	}
	return stored.ID, nil
}

func (c *Canonicalizer) updateJob(ctx context.Context, tx *gorm.DB, jobID uint, updates map[string]any) error {
	return tx.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(updates).Error
}

func setIfPresent[T any](m map[string]any, key string, v *T) {
	if v != nil {
		m[key] = *v
	}
}

func (c *Canonicalizer) UpsertOpportunity(ctx context.Context, tx *gorm.DB, jobID uint, rawURL, platform string, location *string) (uint, error) {
	now := c.now()
	opp := models.JobOpportunity{
		JobID:             jobID,
		URL:               rawURL,
		SourcePlatform:    platform,
		ExtractedLocation: location,
		IsActive:          true,
		LastCheckedAt:     &now,
	}
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "url"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_checked_at": now,
				"updated_at":      now,
			}),
		}).
		Create(&opp).Error; err != nil {
		return 0, err
	}

	var stored models.JobOpportunity
	if err := tx.WithContext(ctx).Where("url = ?", rawURL).First(&stored).Error; err != nil {
		return 0, err
	}
	return stored.ID, nil
}

var analysisReplaceColumns = []string{
	"position_relevance_score",
	"environment_fit_score",
	"hiring_manager_view",
	"matrix_rating",
	"summary",
	"qualification_gaps",
	"recommended_testimonials",
	"analysis_protocol_version",
	"updated_at",
}

// UpsertAnalysis inserts or fully replaces the (job, user) analysis.
func (c *Canonicalizer) UpsertAnalysis(ctx context.Context, tx *gorm.DB, jobID, userID uint, a *Analysis, version string) error {
	now := c.now()
	row := models.JobAnalysis{
		JobID:                   jobID,
		UserID:                  userID,
		CreatedAt:               now,
		UpdatedAt:               now,
		PositionRelevanceScore:  clampScore(a.PositionRelevanceScore),
		EnvironmentFitScore:     clampScore(a.EnvironmentFitScore),
		HiringManagerView:       a.HiringManagerView,
		MatrixRating:            MatrixRating(a.PositionRelevanceScore, a.EnvironmentFitScore),
		Summary:                 a.Summary,
		QualificationGaps:       datatypes.JSONSlice[string](nonNil(a.QualificationGaps)),
		RecommendedTestimonials: datatypes.JSONSlice[string](nonNil(a.RecommendedTestimonials)),
		AnalysisProtocolVersion: version,
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(analysisReplaceColumns),
		}).
		Create(&row).Error
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
