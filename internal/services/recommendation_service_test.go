package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id uint, pos, env int, modality, level string, analyzedAt time.Time) RecommendationCandidate {
	c := RecommendationCandidate{
		JobID:                  id,
		JobTitle:               "Job",
		PositionRelevanceScore: pos,
		EnvironmentFitScore:    env,
		MatrixRating:           MatrixRating(pos, env),
		AnalyzedAt:             analyzedAt,
	}
	if modality != "" {
		c.JobModality = strPtr(modality)
	}
	if level != "" {
		c.DeducedJobLevel = strPtr(level)
	}
	return c
}

func TestRecommendationScore(t *testing.T) {
	remote := true
	onsite := false
	tests := []struct {
		name    string
		profile *models.UserProfile
		c       RecommendationCandidate
		want    float64
	}{
		{"plain average", &models.UserProfile{}, candidate(1, 80, 71, "", "", fixedNow), 75.5},
		{"remote match", &models.UserProfile{IsRemotePreferred: &remote}, candidate(1, 80, 70, "Remote", "", fixedNow), 80},
		{"remote mismatch", &models.UserProfile{IsRemotePreferred: &remote}, candidate(1, 80, 70, "On-site", "", fixedNow), 75},
		{"on-site match", &models.UserProfile{IsRemotePreferred: &onsite}, candidate(1, 80, 70, "Hybrid", "", fixedNow), 80},
		{"deal breaker level", &models.UserProfile{DealBreakers: strPtr("No manager roles, no travel")}, candidate(1, 80, 70, "", "Manager", fixedNow), 65},
		{"nil profile", nil, candidate(1, 60, 40, "Remote", "Manager", fixedNow), 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RecommendationScore(tt.profile, tt.c), 0.0001)
		})
	}
}

func TestRankRecommendations_OrderAndLimit(t *testing.T) {
	remote := true
	profile := &models.UserProfile{IsRemotePreferred: &remote}
	older := fixedNow.Add(-time.Hour)

	got := RankRecommendations(profile, []RecommendationCandidate{
		candidate(1, 70, 70, "On-site", "", fixedNow), // 70
		candidate(2, 70, 70, "Remote", "", fixedNow),  // 75
		candidate(3, 75, 75, "", "", older),           // 75, older
		candidate(4, 90, 90, "", "", fixedNow),        // 90
	}, 3)

	require.Len(t, got, 3)
	assert.Equal(t, []uint{4, 2, 3}, []uint{got[0].JobID, got[1].JobID, got[2].JobID})
	assert.Equal(t, 75.0, got[1].Score)
	assert.NotNil(t, got[0].QualificationGap)
}

func TestRecommend_ExcludesExpiredAndClosedJobs(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	user := p.seedUser(t, "user_1")
	svc := NewRecommendationService(p.db, p.profiles, logger.Nop())

	urls := []string{acmeURL, "https://example.com/job/2", "https://example.com/job/3"}
	var views []uint
	for _, u := range urls {
		p.fetcher.text = acmeJobText() + u
		v, err := p.jobs.SubmitJob(ctx, user.ID, u)
		require.NoError(t, err)
		views = append(views, v.TrackedJobID)
	}

	recs, err := svc.Recommend(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	_, err = p.tracked.Update(ctx, user.ID, views[0], map[string]any{"status": models.TrackedRejected})
	require.NoError(t, err)
	var second models.Job
	require.NoError(t, p.db.Where("url = ?", urls[1]).First(&second).Error)
	require.NoError(t, p.db.Model(&second).Update("status", string(models.JobStatusExpiredUnreachable)).Error)

	recs, err = svc.Recommend(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, urls[2], recs[0].JobURL)
	assert.Equal(t, []string{"Kafka"}, recs[0].QualificationGap)
}

func TestRecommend_Validation(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	svc := NewRecommendationService(p.db, p.profiles, logger.Nop())
	user := p.seedUser(t, "user_1")

	_, err := svc.Recommend(ctx, user.ID, 51)
	assert.Error(t, err)

	sparse, err := p.users.EnsureUser(ctx, "sparse")
	require.NoError(t, err)
	_, err = p.profiles.GetOrCreate(ctx, sparse.ID)
	require.NoError(t, err)
	_, err = svc.Recommend(ctx, sparse.ID, 10)
	assert.True(t, errors.Is(err, ErrProfileTooSparse))
}
