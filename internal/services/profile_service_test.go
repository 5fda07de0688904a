package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/database/dbtest"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectProfile(t *testing.T) {
	remote := true
	p := &models.UserProfile{
		FullName:            strPtr("Ada Lovelace"),
		ShortTermCareerGoal: strPtr("lead data platform team"),
		DesiredTitle:        strPtr("Staff Data Engineer"),
		CoreStrengths:       strPtr("   "),
		IsRemotePreferred:   &remote,
	}
	got, err := ProjectProfile(p)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"- Short-term Career Goal: lead data platform team",
		"- Desired Title: Staff Data Engineer",
		"- Remote Preference: Prefers remote",
	}, "\n"), got)
	assert.NotContains(t, got, "Ada", "name is not an analysis input")

	_, err = ProjectProfile(&models.UserProfile{FullName: strPtr("Ada"), DesiredTitle: strPtr("Staff")})
	assert.True(t, errors.Is(err, ErrProfileTooSparse))
	_, err = ProjectProfile(nil)
	assert.True(t, errors.Is(err, ErrProfileTooSparse))
}

func TestEnsureUser_Idempotent(t *testing.T) {
	db := dbtest.Open(t)
	users := NewUserService(db, logger.Nop())
	ctx := context.Background()

	a, err := users.EnsureUser(ctx, "user_2abc")
	require.NoError(t, err)
	b, err := users.EnsureUser(ctx, "user_2abc")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := users.EnsureUser(ctx, "user_concurrent")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 2, count(t, db, &models.User{}))

	_, err = users.EnsureUser(ctx, "  ")
	assert.Error(t, err)
}

func TestProfileService_GetOrCreateAndUpdate(t *testing.T) {
	db := dbtest.Open(t)
	log := logger.Nop()
	ctx := context.Background()
	user, err := NewUserService(db, log).EnsureUser(ctx, "user_1")
	require.NoError(t, err)
	profiles := NewProfileService(db, log)

	_, err = profiles.Get(ctx, user.ID)
	assert.True(t, errors.Is(err, ErrProfileNotFound))

	created, err := profiles.GetOrCreate(ctx, user.ID)
	require.NoError(t, err)
	again, err := profiles.GetOrCreate(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.False(t, again.HasCompletedOnboarding)

	patch, err := ParseProfilePatch(rawPatch(t, `{
		"desired_title": " Staff Data Engineer ",
		"preferred_work_style": "remote",
		"preferred_company_size": "Startup",
		"is_remote_preferred": true,
		"has_completed_onboarding": true,
		"skills_to_avoid": ""
	}`))
	require.NoError(t, err)
	updated, err := profiles.Update(ctx, user.ID, patch)
	require.NoError(t, err)
	require.NotNil(t, updated.DesiredTitle)
	assert.Equal(t, "Staff Data Engineer", *updated.DesiredTitle)
	require.NotNil(t, updated.PreferredWorkStyle)
	assert.Equal(t, "Remote", *updated.PreferredWorkStyle)
	require.NotNil(t, updated.IsRemotePreferred)
	assert.True(t, *updated.IsRemotePreferred)
	assert.True(t, updated.HasCompletedOnboarding)
	assert.Nil(t, updated.SkillsToAvoid)
}

func TestParseProfilePatch_Rejects(t *testing.T) {
	for name, body := range map[string]string{
		"empty":          `{}`,
		"unknown field":  `{"favourite_colour":"blue"}`,
		"bad work style": `{"preferred_work_style":"Nomadic"}`,
		"bad size":       `{"preferred_company_size":"Huge"}`,
		"bad bool":       `{"is_remote_preferred":"sometimes"}`,
		"bad text":       `{"desired_title":42}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProfilePatch(rawPatch(t, body))
			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, KindInput, appErr.Kind)
		})
	}
}

func TestResumeService(t *testing.T) {
	db := dbtest.Open(t)
	log := logger.Nop()
	ctx := context.Background()
	user, err := NewUserService(db, log).EnsureUser(ctx, "user_1")
	require.NoError(t, err)
	llm := &fakeLLM{classify: "YES"}
	resumes := NewResumeService(db, NewClassifier(llm, "flash", 2000, log), log)

	_, err = resumes.GetActive(ctx, user.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	first := "Ada Lovelace. Data engineer with eight years of experience building pipelines. " + strings.Repeat("Python, SQL, Spark. ", 5)
	second := "Ada Lovelace. Staff data engineer, led a platform team of six. " + strings.Repeat("Kafka, Go, Postgres. ", 5)

	_, err = resumes.Submit(ctx, user.ID, first)
	require.NoError(t, err)
	latest, err := resumes.Submit(ctx, user.ID, second)
	require.NoError(t, err)

	active, err := resumes.GetActive(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, active.ID)

	var activeCount int64
	require.NoError(t, db.Model(&models.ResumeSubmission{}).Where("user_id = ? AND is_active = ?", user.ID, true).Count(&activeCount).Error)
	assert.EqualValues(t, 1, activeCount)
	assert.EqualValues(t, 2, count(t, db, &models.ResumeSubmission{}))

	_, err = resumes.Submit(ctx, user.ID, "too short")
	assert.True(t, errors.Is(err, ErrInsufficientContent))

	llm.classify = "NO"
	_, err = resumes.Submit(ctx, user.ID, first)
	assert.True(t, errors.Is(err, ErrNotAResume))
	assert.EqualValues(t, 2, count(t, db, &models.ResumeSubmission{}))
}
