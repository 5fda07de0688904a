package services

import (
	"context"
	"errors"
	"testing"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const acmeURL = "https://example.com/job/123"

func TestSubmitJob_FreshSubmission(t *testing.T) {
	p := newPipeline(t)
	user := p.seedUser(t, "user_1")

	view, err := p.jobs.SubmitJob(context.Background(), user.ID, acmeURL)
	require.NoError(t, err)

	assert.Equal(t, "Senior Data Engineer", view.JobTitle)
	assert.Equal(t, "Acme", view.CompanyName)
	assert.Equal(t, acmeURL, view.JobURL)
	assert.Equal(t, string(models.TrackedSaved), view.Status)
	assert.Equal(t, string(models.JobStatusActive), view.JobPostingStatus)
	require.NotNil(t, view.AIAnalysis)
	assert.Equal(t, "B+", view.AIAnalysis.MatrixRating)
	assert.Equal(t, 78, view.AIAnalysis.PositionRelevanceScore)
	assert.Equal(t, 72, view.AIAnalysis.EnvironmentFitScore)
	assert.Equal(t, []string{"Kafka"}, view.AIAnalysis.QualificationGaps)
	assert.Equal(t, []string{"ETL scale story"}, view.AIAnalysis.RecommendedTestimonials)

	var job models.Job
	require.NoError(t, p.db.First(&job, view.JobID).Error)
	require.NotNil(t, job.RequiredExperienceYears)
	assert.Equal(t, 5, *job.RequiredExperienceYears)
	require.NotNil(t, job.JobModality)
	assert.Equal(t, "Remote", *job.JobModality)
	assert.Nil(t, job.SalaryMin)
	assert.Equal(t, "User Submission", job.Source)

	var analysis models.JobAnalysis
	require.NoError(t, p.db.Where("job_id = ? AND user_id = ?", view.JobID, user.ID).First(&analysis).Error)
	assert.Equal(t, "2.0", analysis.AnalysisProtocolVersion)
	assert.Equal(t, MatrixRating(analysis.PositionRelevanceScore, analysis.EnvironmentFitScore), analysis.MatrixRating)
}

func TestSubmitJob_DuplicateIsRejectedWithoutWrites(t *testing.T) {
	p := newPipeline(t)
	user := p.seedUser(t, "user_1")
	ctx := context.Background()

	_, err := p.jobs.SubmitJob(ctx, user.ID, acmeURL)
	require.NoError(t, err)
	fetches := len(p.fetcher.urls)

	_, err = p.jobs.SubmitJob(ctx, user.ID, acmeURL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyTracking))

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "You are already tracking this job.", appErr.Message)
	assert.Equal(t, fetches, len(p.fetcher.urls), "duplicate must short-circuit before fetching")

	assert.EqualValues(t, 1, count(t, p.db, &models.TrackedJob{}))
	assert.EqualValues(t, 1, count(t, p.db, &models.JobAnalysis{}))
}

func TestSubmitJob_TwoUsersShareCanonicalRows(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	u1 := p.seedUser(t, "user_1")
	u2 := p.seedUser(t, "user_2")

	v1, err := p.jobs.SubmitJob(ctx, u1.ID, acmeURL)
	require.NoError(t, err)
	v2, err := p.jobs.SubmitJob(ctx, u2.ID, acmeURL)
	require.NoError(t, err)

	assert.Equal(t, v1.JobID, v2.JobID)
	assert.NotEqual(t, v1.TrackedJobID, v2.TrackedJobID)
	assert.EqualValues(t, 1, count(t, p.db, &models.Company{}))
	assert.EqualValues(t, 1, count(t, p.db, &models.Job{}))
	assert.EqualValues(t, 1, count(t, p.db, &models.JobOpportunity{}))
	assert.EqualValues(t, 2, count(t, p.db, &models.TrackedJob{}))
	assert.EqualValues(t, 2, count(t, p.db, &models.JobAnalysis{}))
}

func TestSubmitJob_SameDescriptionDifferentURLReusesJob(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	user := p.seedUser(t, "user_1")

	v1, err := p.jobs.SubmitJob(ctx, user.ID, acmeURL)
	require.NoError(t, err)
	v2, err := p.jobs.SubmitJob(ctx, user.ID, "https://boards.example.org/acme/senior-data-engineer")
	require.NoError(t, err)

	assert.Equal(t, v1.JobID, v2.JobID)
	assert.EqualValues(t, 1, count(t, p.db, &models.Job{}))
	assert.EqualValues(t, 2, count(t, p.db, &models.JobOpportunity{}))
	assert.EqualValues(t, 2, count(t, p.db, &models.TrackedJob{}))
}

func assertNoPipelineRows(t *testing.T, p *pipeline) {
	t.Helper()
	assert.EqualValues(t, 0, count(t, p.db, &models.Company{}))
	assert.EqualValues(t, 0, count(t, p.db, &models.Job{}))
	assert.EqualValues(t, 0, count(t, p.db, &models.JobOpportunity{}))
	assert.EqualValues(t, 0, count(t, p.db, &models.JobAnalysis{}))
	assert.EqualValues(t, 0, count(t, p.db, &models.TrackedJob{}))
}

func TestSubmitJob_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, p *pipeline) uint
		wantErr error
	}{
		{
			name: "sparse profile",
			setup: func(t *testing.T, p *pipeline) uint {
				user, err := p.users.EnsureUser(context.Background(), "sparse")
				require.NoError(t, err)
				_, err = p.profiles.Update(context.Background(), user.ID, map[string]any{"full_name": "Ada"})
				require.NoError(t, err)
				return user.ID
			},
			wantErr: ErrProfileTooSparse,
		},
		{
			name: "missing profile",
			setup: func(t *testing.T, p *pipeline) uint {
				user, err := p.users.EnsureUser(context.Background(), "no-profile")
				require.NoError(t, err)
				return user.ID
			},
			wantErr: ErrProfileNotFound,
		},
		{
			name: "unreachable url",
			setup: func(t *testing.T, p *pipeline) uint {
				p.fetcher.err = unreachableURL(context.DeadlineExceeded)
				return p.seedUser(t, "user_1").ID
			},
			wantErr: ErrUnreachableURL,
		},
		{
			name: "not a job posting",
			setup: func(t *testing.T, p *pipeline) uint {
				p.llm.classify = "NO"
				return p.seedUser(t, "user_1").ID
			},
			wantErr: ErrNotAJobPosting,
		},
		{
			name: "llm down",
			setup: func(t *testing.T, p *pipeline) uint {
				p.llm.analysisErr = errors.New("503 from gemini")
				return p.seedUser(t, "user_1").ID
			},
			wantErr: ErrLLMUnavailable,
		},
		{
			name: "malformed analysis",
			setup: func(t *testing.T, p *pipeline) uint {
				p.llm.analysis = `{"company_name": "Acme"}`
				return p.seedUser(t, "user_1").ID
			},
			wantErr: ErrMalformedAnalysis,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t)
			userID := tt.setup(t, p)

			view, err := p.jobs.SubmitJob(context.Background(), userID, acmeURL)
			assert.Nil(t, view)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assertNoPipelineRows(t, p)
		})
	}
}

func TestSubmitJob_NotAJobPostingMessage(t *testing.T) {
	p := newPipeline(t)
	p.llm.classify = "no"
	user := p.seedUser(t, "user_1")

	_, err := p.jobs.SubmitJob(context.Background(), user.ID, acmeURL)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Message, "does not appear to be a job posting")
}

func TestValidateJobURL(t *testing.T) {
	got, err := ValidateJobURL("  https://example.com/job/1 ")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/job/1", got)

	for _, bad := range []string{"", "example.com/job", "ftp://example.com/x", "https://"} {
		_, err := ValidateJobURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestReanalyze_ReplacesAnalysisAndExtracts(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	user := p.seedUser(t, "user_1")
	view, err := p.jobs.SubmitJob(ctx, user.ID, acmeURL)
	require.NoError(t, err)

	p.llm.analysis = `{"company_name":"Acme","job_title":"Staff Data Engineer","position_relevance_score":95,"environment_fit_score":91,"summary":"Now a stretch up.","job_modality":"Hybrid"}`
	require.NoError(t, p.jobs.Reanalyze(ctx, user.ID, view.JobID, acmeURL))

	var analysis models.JobAnalysis
	require.NoError(t, p.db.Where("job_id = ? AND user_id = ?", view.JobID, user.ID).First(&analysis).Error)
	assert.Equal(t, "A+", analysis.MatrixRating)
	assert.Equal(t, 95, analysis.PositionRelevanceScore)
	assert.Empty(t, analysis.QualificationGaps)

	var job models.Job
	require.NoError(t, p.db.First(&job, view.JobID).Error)
	assert.Equal(t, "Staff Data Engineer", job.JobTitle)
	require.NotNil(t, job.JobModality)
	assert.Equal(t, "Hybrid", *job.JobModality)
}

func TestSubmitJob_FailureInsideTransactionLeavesNoRows(t *testing.T) {
	p := newPipeline(t)
	user := p.seedUser(t, "user_1")
	require.NoError(t, p.db.Callback().Create().Before("gorm:create").Register("test:fail_tracked_jobs", func(db *gorm.DB) {
		if db.Statement.Table == "tracked_jobs" {
			_ = db.AddError(errors.New("disk full"))
		}
	}))

	_, err := p.jobs.SubmitJob(context.Background(), user.ID, acmeURL)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindInternal, appErr.Kind)

	for _, model := range []any{&models.Company{}, &models.Job{}, &models.JobOpportunity{}, &models.JobAnalysis{}, &models.TrackedJob{}} {
		assert.EqualValues(t, 0, count(t, p.db, model), "%T", model)
	}
}

func TestSubmitJob_SameUserRaceFailsWithAlreadyTracking(t *testing.T) {
	p := newPipeline(t)
	user := p.seedUser(t, "user_1")

	// A concurrent submission by the same user lands between the duplicate
	// pre-check and the transaction.
	raced := false
	p.fetcher.onFetch = func(url string) {
		if !raced {
			raced = true
			seedTrackedJob(t, p, user.ID, url, fixedNow)
		}
	}

	_, err := p.jobs.SubmitJob(context.Background(), user.ID, acmeURL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyTracking), "got %v", err)

	assert.EqualValues(t, 1, count(t, p.db, &models.TrackedJob{}))
	assert.EqualValues(t, 1, count(t, p.db, &models.JobOpportunity{}))
	assert.EqualValues(t, 0, count(t, p.db, &models.JobAnalysis{}))
}
