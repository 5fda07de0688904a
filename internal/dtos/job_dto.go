package dtos

import "time"

type JobSubmissionRequest struct {
	JobURL string `json:"job_url" binding:"required"`
}

type ResumeSubmissionRequest struct {
	ResumeText string `json:"resume_text" binding:"required"`
}

type AIAnalysisView struct {
	PositionRelevanceScore  int      `json:"position_relevance_score"`
	EnvironmentFitScore     int      `json:"environment_fit_score"`
	HiringManagerView       string   `json:"hiring_manager_view"`
	MatrixRating            string   `json:"matrix_rating"`
	Summary                 string   `json:"summary"`
	QualificationGaps       []string `json:"qualification_gaps"`
	RecommendedTestimonials []string `json:"recommended_testimonials"`
}

// TrackedJobView is one entry of a user's tracked-jobs list.
type TrackedJobView struct {
	TrackedJobID     uint            `json:"tracked_job_id"`
	JobID            uint            `json:"job_id"`
	JobTitle         string          `json:"job_title"`
	CompanyName      string          `json:"company_name"`
	JobURL           string          `json:"job_url"`
	Status           string          `json:"status"`
	UserNotes        *string         `json:"user_notes"`
	AppliedAt        *time.Time      `json:"applied_at"`
	CreatedAt        time.Time       `json:"created_at"`
	IsExcited        bool            `json:"is_excited"`
	JobPostingStatus string          `json:"job_posting_status"`
	LastCheckedAt    *time.Time      `json:"last_checked_at"`
	StatusReason     *string         `json:"status_reason"`
	FirstInterviewAt *time.Time      `json:"first_interview_at"`
	OfferReceivedAt  *time.Time      `json:"offer_received_at"`
	ResolvedAt       *time.Time      `json:"resolved_at"`
	NextActionAt     *time.Time      `json:"next_action_at"`
	NextActionNotes  *string         `json:"next_action_notes"`
	AIAnalysis       *AIAnalysisView `json:"ai_analysis"`
}

type TrackedJobList struct {
	TrackedJobs []TrackedJobView `json:"tracked_jobs"`
	TotalCount  int64            `json:"total_count"`
	Page        int              `json:"page"`
	Limit       int              `json:"limit"`
}

type Recommendation struct {
	JobID            uint     `json:"job_id"`
	JobTitle         string   `json:"job_title"`
	CompanyName      string   `json:"company_name"`
	JobURL           string   `json:"job_url"`
	JobModality      *string  `json:"job_modality"`
	DeducedJobLevel  *string  `json:"deduced_job_level"`
	MatrixRating     string   `json:"matrix_rating"`
	Score            float64  `json:"score"`
	Summary          string   `json:"summary"`
	QualificationGap []string `json:"qualification_gaps"`
}
