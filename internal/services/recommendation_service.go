package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/dtos"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultRecommendationLimit = 10
	MaxRecommendationLimit     = 50

	modalityMatchBonus = 5.0
	dealBreakerPenalty = 10.0
)

// RecommendationCandidate is an analyzed, still-active job the user has not
// closed out.
type RecommendationCandidate struct {
	JobID                  uint
	JobTitle               string
	CompanyName            string
	JobURL                 string
	JobModality            *string
	DeducedJobLevel        *string
	PositionRelevanceScore int
	EnvironmentFitScore    int
	MatrixRating           string
	Summary                string
	QualificationGaps      datatypes.JSONSlice[string]
	AnalyzedAt             time.Time
}

type RecommendationService struct {
	DB       *gorm.DB
	profiles *ProfileService
	log      *logger.Logger
}

func NewRecommendationService(db *gorm.DB, profiles *ProfileService, log *logger.Logger) *RecommendationService {
	return &RecommendationService{DB: db, profiles: profiles, log: log.With("service", "RecommendationService")}
}

func (s *RecommendationService) Recommend(ctx context.Context, userID uint, limit int) ([]dtos.Recommendation, error) {
	if limit == 0 {
		limit = DefaultRecommendationLimit
	}
	if limit < 1 || limit > MaxRecommendationLimit {
		return nil, NewInputError("limit must be between 1 and 50.")
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := ProjectProfile(profile); err != nil {
		return nil, err
	}

	terminal := make([]string, len(models.TerminalTrackedStatuses))
	for i, st := range models.TerminalTrackedStatuses {
		terminal[i] = string(st)
	}

	var candidates []RecommendationCandidate
	err = s.DB.WithContext(ctx).
		Table("job_analyses AS ja").
		Select(`j.id AS job_id,
			j.job_title AS job_title,
			j.company_name AS company_name,
			j.url AS job_url,
			j.job_modality AS job_modality,
			j.deduced_job_level AS deduced_job_level,
			ja.position_relevance_score AS position_relevance_score,
			ja.environment_fit_score AS environment_fit_score,
			ja.matrix_rating AS matrix_rating,
			ja.summary AS summary,
			COALESCE(ja.qualification_gaps, '[]') AS qualification_gaps,
			ja.updated_at AS analyzed_at`).
		Joins("JOIN jobs AS j ON j.id = ja.job_id").
		Where("ja.user_id = ? AND j.status = ?", userID, string(models.JobStatusActive)).
		Where(`NOT EXISTS (
			SELECT 1 FROM tracked_jobs AS tj
			JOIN job_opportunities AS jo ON jo.id = tj.job_opportunity_id
			WHERE jo.job_id = j.id AND tj.user_id = ja.user_id AND tj.status IN ?)`, terminal).
		Scan(&candidates).Error
	if err != nil {
		return nil, NewInternalError("Failed to load recommendation candidates.", err)
	}
	return RankRecommendations(profile, candidates, limit), nil
}

// RecommendationScore is the average fit score adjusted for the user's
// remote preference and stated deal breakers.
func RecommendationScore(p *models.UserProfile, c RecommendationCandidate) float64 {
	score := float64(c.PositionRelevanceScore+c.EnvironmentFitScore) / 2
	if p == nil {
		return score
	}
	if p.IsRemotePreferred != nil && c.JobModality != nil {
		remote := *c.JobModality == "Remote"
		if remote == *p.IsRemotePreferred {
			score += modalityMatchBonus
		}
	}
	if p.DealBreakers != nil && c.DeducedJobLevel != nil &&
		strings.Contains(strings.ToLower(*p.DealBreakers), strings.ToLower(*c.DeducedJobLevel)) {
		score -= dealBreakerPenalty
	}
	return score
}

// RankRecommendations orders candidates by score, newest analysis first on
// ties, and keeps the top limit.
func RankRecommendations(p *models.UserProfile, candidates []RecommendationCandidate, limit int) []dtos.Recommendation {
	type scored struct {
		c     RecommendationCandidate
		score float64
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{c: c, score: RecommendationScore(p, c)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.c.AnalyzedAt.Equal(b.c.AnalyzedAt) {
			return a.c.AnalyzedAt.After(b.c.AnalyzedAt)
		}
		return a.c.JobID < b.c.JobID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]dtos.Recommendation, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, dtos.Recommendation{
			JobID:            r.c.JobID,
			JobTitle:         r.c.JobTitle,
			CompanyName:      r.c.CompanyName,
			JobURL:           r.c.JobURL,
			JobModality:      r.c.JobModality,
			DeducedJobLevel:  r.c.DeducedJobLevel,
			MatrixRating:     r.c.MatrixRating,
			Score:            r.score,
			Summary:          r.c.Summary,
			QualificationGap: nonNil(r.c.QualificationGaps),
		})
	}
	return out
}
