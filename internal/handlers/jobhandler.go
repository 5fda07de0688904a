package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/dtos"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/services"
)

type JobHandler struct {
	JobService            *services.JobService
	RecommendationService *services.RecommendationService
	log                   *logger.Logger
}

func NewJobHandler(j *services.JobService, r *services.RecommendationService, log *logger.Logger) *JobHandler {
	return &JobHandler{
		JobService:            j,
		RecommendationService: r,
		log:                   log.With("handler", "JobHandler"),
	}
}

// SubmitJob is the POST /jobs/submit endpoint
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req dtos.JobSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: job_url is required.", "code": services.CodeInvalidInput})
		return
	}
	user := CurrentUser(c)
	view, err := h.JobService.SubmitJob(c.Request.Context(), user.ID, req.JobURL)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Recommendations is the GET /jobs/recommendations endpoint
func (h *JobHandler) Recommendations(c *gin.Context) {
	limit := services.DefaultRecommendationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer.", "code": services.CodeInvalidInput})
			return
		}
		limit = n
	}
	recs, err := h.RecommendationService.Recommend(c.Request.Context(), CurrentUser(c).ID, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}
