package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	recheckAfter      = 24 * time.Hour
	staleStatusReason = "Stale - No action in %d days"
)

// Reanalyzer recomputes one user's analysis of one job.
type Reanalyzer interface {
	Reanalyze(ctx context.Context, userID, jobID uint, jobURL string) error
}

type SweeperConfig struct {
	ProtocolVersion      string
	JobPostingMaxAgeDays int
	TrackedJobStaleDays  int
	BatchSize            int
	RateLimit            time.Duration
	Interval             time.Duration
}

// Sweeper holds the maintenance passes that keep stored postings, tracked
// jobs and analyses current. Every pass is idempotent and bounded by
// BatchSize, so re-running it after a partial failure is safe.
type Sweeper struct {
	DB         *gorm.DB
	prober     URLProber
	reanalyzer Reanalyzer
	limiter    *rate.Limiter
	cfg        SweeperConfig
	now        func() time.Time
	log        *logger.Logger
}

func NewSweeper(db *gorm.DB, prober URLProber, reanalyzer Reanalyzer, cfg SweeperConfig, now func() time.Time, log *logger.Logger) *Sweeper {
	if now == nil {
		now = time.Now
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Every(cfg.RateLimit)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return &Sweeper{
		DB:         db,
		prober:     prober,
		reanalyzer: reanalyzer,
		limiter:    rate.NewLimiter(limit, 1),
		cfg:        cfg,
		now:        now,
		log:        log.With("service", "Sweeper"),
	}
}

type URLCheckSummary struct {
	Checked            int `json:"checked"`
	StillActive        int `json:"still_active"`
	ExpiredTimeBased   int `json:"expired_time_based"`
	ExpiredUnreachable int `json:"expired_unreachable"`
	Failed             int `json:"failed"`
}

type StaleCheckSummary struct {
	Examined int `json:"examined"`
	Expired  int `json:"expired"`
	Failed   int `json:"failed"`
}

type RefreshSummary struct {
	Candidates  int `json:"candidates"`
	Refreshed   int `json:"refreshed"`
	Unreachable int `json:"unreachable"`
	Failed      int `json:"failed"`
}

type SweepSummary struct {
	URLs     URLCheckSummary   `json:"url_validity"`
	Stale    StaleCheckSummary `json:"tracked_job_expiration"`
	Analyses RefreshSummary    `json:"analysis_refresh"`
}

func (s *Sweeper) ageCutoff() time.Time {
	return s.now().Add(-time.Duration(s.cfg.JobPostingMaxAgeDays) * 24 * time.Hour)
}

// CheckURLValidity expires active jobs that are too old or whose URL no
// longer answers. A job reaching exactly the age limit counts as expired.
func (s *Sweeper) CheckURLValidity(ctx context.Context) (*URLCheckSummary, error) {
	now := s.now()
	cutoff := s.ageCutoff()

	var jobs []models.Job
	err := s.DB.WithContext(ctx).
		Where("status = ?", string(models.JobStatusActive)).
		Where("found_at <= ? OR last_checked_at IS NULL OR last_checked_at <= ?", cutoff, now.Add(-recheckAfter)).
		Order("id").
		Limit(s.cfg.BatchSize).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("select jobs to check: %w", err)
	}

	sum := &URLCheckSummary{}
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		next := models.JobStatusActive
		if !job.FoundAt.After(cutoff) {
			next = models.JobStatusExpiredTimeBased
		} else {
			if err := s.limiter.Wait(ctx); err != nil {
				return sum, err
			}
			if !s.prober.Probe(ctx, job.URL) {
				next = models.JobStatusExpiredUnreachable
			}
		}

		if err := s.setJobStatus(ctx, job.ID, next, now); err != nil {
			sum.Failed++
			s.log.Warn("Failed to record job check", "job_id", job.ID, "error", err)
			continue
		}
		sum.Checked++
		switch next {
		case models.JobStatusActive:
			sum.StillActive++
		case models.JobStatusExpiredTimeBased:
			sum.ExpiredTimeBased++
		case models.JobStatusExpiredUnreachable:
			sum.ExpiredUnreachable++
		}
	}
	s.log.Info("URL validity pass finished", "checked", sum.Checked, "expired_time_based", sum.ExpiredTimeBased, "expired_unreachable", sum.ExpiredUnreachable, "failed", sum.Failed)
	return sum, nil
}

func (s *Sweeper) setJobStatus(ctx context.Context, jobID uint, status models.JobStatus, now time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Job{}).Where("id = ?", jobID).Updates(map[string]any{
			"status":          string(status),
			"last_checked_at": now,
		}).Error; err != nil {
			return err
		}
		if status == models.JobStatusActive {
			return nil
		}
		return tx.Model(&models.JobOpportunity{}).Where("job_id = ?", jobID).Updates(map[string]any{
			"is_active":       false,
			"last_checked_at": now,
		}).Error
	})
}

// CheckTrackedJobExpiration moves non-terminal tracked jobs without activity
// for TrackedJobStaleDays to EXPIRED.
func (s *Sweeper) CheckTrackedJobExpiration(ctx context.Context) (*StaleCheckSummary, error) {
	now := s.now()
	cutoff := now.Add(-time.Duration(s.cfg.TrackedJobStaleDays) * 24 * time.Hour)

	terminal := make([]string, len(models.TerminalTrackedStatuses))
	for i, st := range models.TerminalTrackedStatuses {
		terminal[i] = string(st)
	}

	var stale []models.TrackedJob
	err := s.DB.WithContext(ctx).
		Where("status NOT IN ? AND updated_at <= ?", terminal, cutoff).
		Order("id").
		Limit(s.cfg.BatchSize).
		Find(&stale).Error
	if err != nil {
		return nil, fmt.Errorf("select stale tracked jobs: %w", err)
	}

	sum := &StaleCheckSummary{Examined: len(stale)}
	reason := fmt.Sprintf(staleStatusReason, s.cfg.TrackedJobStaleDays)
	for i := range stale {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		tj := &stale[i]
		updates := map[string]any{"status_reason": reason}
		applyStatusTransition(tj, models.TrackedExpired, now, updates)
		if err := s.DB.WithContext(ctx).Model(&models.TrackedJob{}).Where("id = ?", tj.ID).Updates(updates).Error; err != nil {
			sum.Failed++
			s.log.Warn("Failed to expire tracked job", "tracked_job_id", tj.ID, "error", err)
			continue
		}
		sum.Expired++
	}
	s.log.Info("Tracked job expiration pass finished", "examined", sum.Examined, "expired", sum.Expired, "failed", sum.Failed)
	return sum, nil
}

type refreshCandidate struct {
	UserID                  uint
	JobID                   uint
	JobURL                  string
	AnalysisProtocolVersion *string
}

// RefreshAnalyses re-runs analysis for tracked (user, job) pairs on active
// jobs whose stored analysis is missing or older than the current protocol
// version. Batches are walked with a (user_id, job_id) cursor so pairs that
// stay stale, such as unreachable URLs or failed runs, never hide the ones
// behind them.
func (s *Sweeper) RefreshAnalyses(ctx context.Context) (*RefreshSummary, error) {
	sum := &RefreshSummary{}
	var afterUser, afterJob uint
	for {
		rows, err := s.refreshBatch(ctx, afterUser, afterJob)
		if err != nil {
			return sum, err
		}
		for _, r := range rows {
			if err := s.refreshOne(ctx, r, sum); err != nil {
				return sum, err
			}
		}
		if len(rows) < s.cfg.BatchSize {
			break
		}
		last := rows[len(rows)-1]
		afterUser, afterJob = last.UserID, last.JobID
	}
	s.log.Info("Analysis refresh pass finished", "candidates", sum.Candidates, "refreshed", sum.Refreshed, "unreachable", sum.Unreachable, "failed", sum.Failed)
	return sum, nil
}

func (s *Sweeper) refreshBatch(ctx context.Context, afterUser, afterJob uint) ([]refreshCandidate, error) {
	var rows []refreshCandidate
	err := s.DB.WithContext(ctx).
		Table("tracked_jobs AS tj").
		Select(`DISTINCT tj.user_id AS user_id,
			j.id AS job_id,
			j.url AS job_url,
			ja.analysis_protocol_version AS analysis_protocol_version`).
		Joins("JOIN job_opportunities AS jo ON jo.id = tj.job_opportunity_id").
		Joins("JOIN jobs AS j ON j.id = jo.job_id").
		Joins("LEFT JOIN job_analyses AS ja ON ja.job_id = j.id AND ja.user_id = tj.user_id").
		Where("j.status = ? AND j.url <> ''", string(models.JobStatusActive)).
		Where("(ja.job_id IS NULL OR ja.analysis_protocol_version <> ?)", s.cfg.ProtocolVersion).
		Where("(tj.user_id > ? OR (tj.user_id = ? AND j.id > ?))", afterUser, afterUser, afterJob).
		Order("tj.user_id, j.id").
		Limit(s.cfg.BatchSize).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select analyses to refresh: %w", err)
	}
	return rows, nil
}

// refreshOne returns an error only when ctx ends; item failures are counted.
func (s *Sweeper) refreshOne(ctx context.Context, r refreshCandidate, sum *RefreshSummary) error {
	if r.AnalysisProtocolVersion != nil && CompareVersions(*r.AnalysisProtocolVersion, s.cfg.ProtocolVersion) >= 0 {
		return nil
	}
	sum.Candidates++
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if !s.prober.Probe(ctx, r.JobURL) {
		sum.Unreachable++
		return nil
	}
	if err := s.reanalyzer.Reanalyze(ctx, r.UserID, r.JobID, r.JobURL); err != nil {
		sum.Failed++
		s.log.Warn("Re-analysis failed", "user_id", r.UserID, "job_id", r.JobID, "error", err)
		return nil
	}
	sum.Refreshed++
	return nil
}

// RunOnce runs every pass in order. A failing pass is logged and does not
// stop the ones after it.
func (s *Sweeper) RunOnce(ctx context.Context) SweepSummary {
	var out SweepSummary
	if sum, err := s.CheckURLValidity(ctx); err != nil {
		s.log.Error("URL validity pass failed", "error", err)
	} else {
		out.URLs = *sum
	}
	if sum, err := s.CheckTrackedJobExpiration(ctx); err != nil {
		s.log.Error("Tracked job expiration pass failed", "error", err)
	} else {
		out.Stale = *sum
	}
	if sum, err := s.RefreshAnalyses(ctx); err != nil {
		s.log.Error("Analysis refresh pass failed", "error", err)
	} else {
		out.Analyses = *sum
	}
	return out
}

// Start runs the passes immediately and then every Interval until ctx ends.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		s.log.Warn("Sweeper disabled (no interval configured)")
		return nil
	}
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// CompareVersions compares dotted numeric versions; "2.0" > "1.10" > "1.9".
// Non-numeric parts fall back to string comparison.
func CompareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var pa, pb string
		if i < len(as) {
			pa = as[i]
		}
		if i < len(bs) {
			pb = bs[i]
		}
		na, errA := strconv.Atoi(defaultZero(pa))
		nb, errB := strconv.Atoi(defaultZero(pb))
		if errA == nil && errB == nil {
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(pa, pb); c != 0 {
			return c
		}
	}
	return 0
}

func defaultZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
