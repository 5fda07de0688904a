package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
)

// Analysis is the validated result of one fit analysis.
type Analysis struct {
	CompanyName             string
	JobTitle                string
	PositionRelevanceScore  int
	EnvironmentFitScore     int
	HiringManagerView       string
	MatrixRating            string
	Summary                 string
	QualificationGaps       []string
	RecommendedTestimonials []string

	SalaryMin               *int
	SalaryMax               *int
	RequiredExperienceYears *int
	JobModality             *string
	DeducedJobLevel         *string
	Location                *string
}

type gradeBand struct {
	min, max int
	grade    string
}

var gradeBands = []gradeBand{
	{90, 100, "A+"},
	{80, 89, "A"},
	{70, 79, "B+"},
	{60, 69, "B"},
	{50, 59, "C+"},
	{40, 49, "C"},
	{30, 39, "D"},
	{0, 29, "F"},
}

// MatrixRating grades the rounded average of the two scores.
func MatrixRating(positionRelevance, environmentFit int) string {
	avg := int(math.Round(float64(clampScore(positionRelevance)+clampScore(environmentFit)) / 2))
	for _, b := range gradeBands {
		if avg >= b.min && avg <= b.max {
			return b.grade
		}
	}
	return "F"
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

const analysisPrompt = `You are the career analyst of a personal job-application tracker. You read a job posting on behalf of one candidate and judge, honestly and specifically, how well the role fits that candidate's stated goals and preferences.

### OUTPUT FORMAT
Respond with a single JSON object and nothing else. Do not wrap it in markdown code fences.
{
  "company_name": "string, the hiring company",
  "job_title": "string, the exact title of the position",
  "position_relevance_score": "integer 0-100, how well the role's work matches the candidate's goals and strengths",
  "environment_fit_score": "integer 0-100, how well the company, team and conditions match the candidate's preferences",
  "hiring_manager_view": "string, how the hiring manager would likely see this candidate",
  "matrix_rating": "string, letter grade from the grading table",
  "summary": "string, two or three sentences on the overall fit",
  "qualification_gaps": ["string", "requirements the candidate may not meet"],
  "recommended_testimonials": ["string", "stories or achievements the candidate should highlight"],
  "salary_min": "integer or null, annual minimum if stated",
  "salary_max": "integer or null, annual maximum if stated",
  "required_experience_years": "integer or null",
  "job_modality": "one of %s, or null",
  "deduced_job_level": "one of %s, or null",
  "location": "string or null"
}

### GRADING TABLE
Compute avg = round((position_relevance_score + environment_fit_score) / 2) and set matrix_rating from:
%s
### RULES
- Use only facts present in the posting. Set unknown values to null; never guess salaries.
- Scores are integers between 0 and 100.

### CANDIDATE PROFILE
<<<PROFILE
%s
PROFILE>>>

### JOB POSTING
<<<JOB
%s
JOB>>>
`

// BuildAnalysisPrompt is deterministic for a given (job text, profile) pair.
func BuildAnalysisPrompt(jobText, profileText string) string {
	var table strings.Builder
	for _, b := range gradeBands {
		fmt.Fprintf(&table, "- %d-%d: %s\n", b.min, b.max, b.grade)
	}
	return fmt.Sprintf(analysisPrompt,
		quoteList(models.JobModalities),
		quoteList(models.JobLevels),
		table.String(),
		profileText,
		jobText,
	)
}

func quoteList(vs []string) string {
	q := make([]string, len(vs))
	for i, v := range vs {
		q[i] = strconv.Quote(v)
	}
	return "[" + strings.Join(q, ", ") + "]"
}

type Analyzer struct {
	llm   LLMClient
	model string
	log   *logger.Logger
}

func NewAnalyzer(llm LLMClient, model string, log *logger.Logger) *Analyzer {
	return &Analyzer{llm: llm, model: model, log: log.With("service", "Analyzer")}
}

func (a *Analyzer) Analyze(ctx context.Context, jobText, profileText string) (*Analysis, error) {
	raw, err := a.llm.Complete(ctx, CompletionRequest{
		Prompt:      BuildAnalysisPrompt(jobText, profileText),
		Model:       a.model,
		JSON:        true,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, llmUnavailable(err)
	}
	analysis, err := ParseAnalysis(raw)
	if err != nil {
		a.log.Warn("Discarding malformed analysis", "error", err, "raw_chars", len(raw))
		return nil, malformedAnalysis(err)
	}
	return analysis, nil
}

// ParseAnalysis validates raw model output. Optional fields that fail coercion
// or enum checks become nil; missing required fields are an error.
func ParseAnalysis(raw string) (*Analysis, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(stripFences(raw)), &m); err != nil {
		return nil, fmt.Errorf("decode analysis json: %w", err)
	}

	out := &Analysis{}
	var ok bool
	if out.CompanyName, ok = requiredString(m, "company_name"); !ok {
		return nil, errors.New("missing company_name")
	}
	if out.JobTitle, ok = requiredString(m, "job_title"); !ok {
		return nil, errors.New("missing job_title")
	}
	if out.Summary, ok = requiredString(m, "summary"); !ok {
		return nil, errors.New("missing summary")
	}
	pos := coerceInt(m["position_relevance_score"])
	if pos == nil {
		return nil, errors.New("missing or non-numeric position_relevance_score")
	}
	env := coerceInt(m["environment_fit_score"])
	if env == nil {
		return nil, errors.New("missing or non-numeric environment_fit_score")
	}
	out.PositionRelevanceScore = clampScore(*pos)
	out.EnvironmentFitScore = clampScore(*env)
	out.MatrixRating = MatrixRating(out.PositionRelevanceScore, out.EnvironmentFitScore)

	out.HiringManagerView, _ = m["hiring_manager_view"].(string)
	out.QualificationGaps = stringList(m["qualification_gaps"])
	out.RecommendedTestimonials = stringList(m["recommended_testimonials"])

	out.SalaryMin = coerceInt(m["salary_min"])
	out.SalaryMax = coerceInt(m["salary_max"])
	out.RequiredExperienceYears = coerceInt(m["required_experience_years"])
	out.JobModality = enumValue(models.JobModalities, m["job_modality"])
	out.DeducedJobLevel = enumValue(models.JobLevels, m["deduced_job_level"])
	if loc, _ := m["location"].(string); strings.TrimSpace(loc) != "" {
		loc = strings.TrimSpace(loc)
		out.Location = &loc
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func requiredString(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

func coerceInt(v any) *int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	i := int(math.Round(f))
	return &i
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func enumValue(set []string, v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	canonical, ok := models.OneOf(set, s)
	if !ok {
		return nil
	}
	return &canonical
}
