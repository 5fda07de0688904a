package models

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Subject claim from the identity provider.
	ExternalIdentityID string `gorm:"uniqueIndex;not null" json:"external_identity_id"`
}

type UserProfile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint  `gorm:"uniqueIndex;not null" json:"user_id"`
	User   *User `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	FullName             *string `json:"full_name"`
	ShortTermCareerGoal  *string `gorm:"type:text" json:"short_term_career_goal"`
	IdealRoleDescription *string `gorm:"type:text" json:"ideal_role_description"`
	CoreStrengths        *string `gorm:"type:text" json:"core_strengths"`
	SkillsToAvoid        *string `gorm:"type:text" json:"skills_to_avoid"`
	PreferredIndustries  *string `gorm:"type:text" json:"preferred_industries"`
	IndustriesToAvoid    *string `gorm:"type:text" json:"industries_to_avoid"`
	DesiredTitle         *string `json:"desired_title"`
	NonNegotiables       *string `gorm:"type:text" json:"non_negotiables"`
	DealBreakers         *string `gorm:"type:text" json:"deal_breakers"`

	PreferredWorkStyle     *string `json:"preferred_work_style"`
	PreferredCompanySize   *string `json:"preferred_company_size"`
	IsRemotePreferred      *bool   `json:"is_remote_preferred"`
	HasCompletedOnboarding bool    `gorm:"not null;default:false" json:"has_completed_onboarding"`
}

type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name string `gorm:"not null" json:"company_name"`
	// lower(trim(name)); carries the case-insensitive uniqueness.
	NameNormalized string `gorm:"uniqueIndex;not null" json:"-"`

	Industry     *string `json:"industry"`
	Description  *string `gorm:"type:text" json:"description"`
	SizeRange    *string `json:"size_range"`
	Headquarters *string `json:"headquarters"`
	FoundedYear  *int    `json:"founded_year"`
	Website      *string `json:"website"`
}

type Job struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CompanyID uint     `gorm:"index;not null" json:"company_id"`
	Company   *Company `gorm:"constraint:OnDelete:CASCADE;" json:"company,omitempty"`

	CompanyName   string     `gorm:"not null" json:"company_name"`
	JobTitle      string     `gorm:"not null" json:"job_title"`
	URL           string     `gorm:"uniqueIndex;not null" json:"url"`
	Source        string     `json:"source"`
	Status        JobStatus  `gorm:"index;not null;default:'Active'" json:"status"`
	FoundAt       time.Time  `gorm:"not null" json:"found_at"`
	LastCheckedAt *time.Time `json:"last_checked_at"`

	SalaryMin               *int    `json:"salary_min"`
	SalaryMax               *int    `json:"salary_max"`
	RequiredExperienceYears *int    `json:"required_experience_years"`
	JobModality             *string `json:"job_modality"`
	DeducedJobLevel         *string `json:"deduced_job_level"`
	JobDescriptionHash      string  `gorm:"index" json:"job_description_hash"`
}

type JobOpportunity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	JobID uint `gorm:"index;not null" json:"job_id"`
	Job   *Job `gorm:"constraint:OnDelete:CASCADE;" json:"job,omitempty"`

	URL               string     `gorm:"uniqueIndex;not null" json:"url"`
	SourcePlatform    string     `json:"source_platform"`
	PostedAt          *time.Time `json:"posted_at"`
	ExtractedLocation *string    `json:"extracted_location"`
	IsActive          bool       `gorm:"not null;default:true" json:"is_active"`
	LastCheckedAt     *time.Time `json:"last_checked_at"`
}

type JobAnalysis struct {
	JobID  uint  `gorm:"primaryKey;autoIncrement:false" json:"job_id"`
	UserID uint  `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Job    *Job  `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	User   *User `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PositionRelevanceScore  int                         `gorm:"not null" json:"position_relevance_score"`
	EnvironmentFitScore     int                         `gorm:"not null" json:"environment_fit_score"`
	HiringManagerView       string                      `gorm:"type:text" json:"hiring_manager_view"`
	MatrixRating            string                      `gorm:"not null" json:"matrix_rating"`
	Summary                 string                      `gorm:"type:text" json:"summary"`
	QualificationGaps       datatypes.JSONSlice[string] `json:"qualification_gaps"`
	RecommendedTestimonials datatypes.JSONSlice[string] `json:"recommended_testimonials"`
	AnalysisProtocolVersion string                      `gorm:"index;not null" json:"analysis_protocol_version"`
}

type TrackedJob struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID           uint            `gorm:"uniqueIndex:idx_tracked_user_opportunity;not null" json:"user_id"`
	JobOpportunityID uint            `gorm:"uniqueIndex:idx_tracked_user_opportunity;not null" json:"job_opportunity_id"`
	User             *User           `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	JobOpportunity   *JobOpportunity `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	Status           TrackedJobStatus `gorm:"index;not null;default:'SAVED'" json:"status"`
	StatusReason     *string          `json:"status_reason"`
	IsExcited        bool             `gorm:"not null;default:false" json:"is_excited"`
	UserNotes        *string          `gorm:"type:text" json:"user_notes"`
	AppliedAt        *time.Time       `json:"applied_at"`
	FirstInterviewAt *time.Time       `json:"first_interview_at"`
	OfferReceivedAt  *time.Time       `json:"offer_received_at"`
	ResolvedAt       *time.Time       `json:"resolved_at"`
	NextActionAt     *time.Time       `json:"next_action_at"`
	NextActionNotes  *string          `gorm:"type:text" json:"next_action_notes"`
}

// ResumeSubmission rows are append-only; at most one per user is active.
type ResumeSubmission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID     uint   `gorm:"index;not null" json:"user_id"`
	User       *User  `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	ResumeText string `gorm:"type:text;not null" json:"resume_text"`
	IsActive   bool   `gorm:"not null;default:false" json:"is_active"`
}

// All lists every table in migration order.
func All() []any {
	return []any{
		&User{},
		&UserProfile{},
		&Company{},
		&Job{},
		&JobOpportunity{},
		&JobAnalysis{},
		&TrackedJob{},
		&ResumeSubmission{},
	}
}
