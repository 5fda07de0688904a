package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/database/dbtest"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// fakeLLM answers classifier prompts with classify and everything else with
// analysis.
type fakeLLM struct {
	mu          sync.Mutex
	classify    string
	classifyErr error
	analysis    string
	analysisErr error
	prompts     []string
}

func (f *fakeLLM) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req.Prompt)
	if strings.Contains(req.Prompt, "Answer with exactly one word") {
		return f.classify, f.classifyErr
	}
	return f.analysis, f.analysisErr
}

type fakeFetcher struct {
	text    string
	err     error
	urls    []string
	onFetch func(url string)
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	if f.onFetch != nil {
		f.onFetch(url)
	}
	return f.text, f.err
}

type fakeProber struct {
	alive map[string]bool
	def   bool
	calls int
}

func (p *fakeProber) Probe(_ context.Context, url string) bool {
	p.calls++
	if v, ok := p.alive[url]; ok {
		return v
	}
	return p.def
}

const acmeAnalysis = `{
  "company_name": "Acme",
  "job_title": "Senior Data Engineer",
  "position_relevance_score": 78,
  "environment_fit_score": 72,
  "hiring_manager_view": "Strong pipeline background, light on streaming.",
  "matrix_rating": "B+",
  "summary": "A good fit for a senior data engineer moving toward platform leadership.",
  "qualification_gaps": ["Kafka"],
  "recommended_testimonials": ["ETL scale story"],
  "salary_min": null,
  "salary_max": null,
  "required_experience_years": 5,
  "job_modality": "Remote",
  "deduced_job_level": "Senior"
}`

func acmeJobText() string {
	text := "Senior Data Engineer at Acme. We are hiring a data engineer to build batch and streaming pipelines. "
	for len(text) < 1200 {
		text += "You will own ingestion, modeling and reliability of our data platform. "
	}
	return text[:1200]
}

type pipeline struct {
	db       *gorm.DB
	llm      *fakeLLM
	fetcher  *fakeFetcher
	prober   *fakeProber
	profiles *ProfileService
	tracked  *TrackedJobService
	users    *UserService
	jobs     *JobService
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	db := dbtest.Open(t)
	log := logger.Nop()

	p := &pipeline{
		db:      db,
		llm:     &fakeLLM{classify: "YES", analysis: acmeAnalysis},
		fetcher: &fakeFetcher{text: acmeJobText()},
		prober:  &fakeProber{def: true},
	}
	p.profiles = NewProfileService(db, log)
	p.tracked = NewTrackedJobService(db, clock, log)
	p.users = NewUserService(db, log)
	p.jobs = NewJobService(db, JobServiceDeps{
		Fetcher:         p.fetcher,
		Classifier:      NewClassifier(p.llm, "flash", 2000, log),
		Analyzer:        NewAnalyzer(p.llm, "pro", log),
		Canonicalizer:   NewCanonicalizer(clock),
		Profiles:        p.profiles,
		TrackedJobs:     p.tracked,
		ProtocolVersion: "2.0",
		Now:             clock,
	}, log)
	return p
}

func strPtr(s string) *string { return &s }

// seedUser creates a user whose profile has the two fields from the fresh
// submission scenario.
func (p *pipeline) seedUser(t *testing.T, externalID string) *models.User {
	t.Helper()
	ctx := context.Background()
	user, err := p.users.EnsureUser(ctx, externalID)
	require.NoError(t, err)
	_, err = p.profiles.Update(ctx, user.ID, map[string]any{
		"short_term_career_goal": "lead data platform team",
		"desired_title":          "Staff Data Engineer",
	})
	require.NoError(t, err)
	return user
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
