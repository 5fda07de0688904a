package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/dtos"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/services"
)

type ProfileHandler struct {
	ProfileService *services.ProfileService
	ResumeService  *services.ResumeService
	log            *logger.Logger
}

func NewProfileHandler(p *services.ProfileService, r *services.ResumeService, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{ProfileService: p, ResumeService: r, log: log.With("handler", "ProfileHandler")}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profile, err := h.ProfileService.GetOrCreate(c.Request.Context(), CurrentUser(c).ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body.", "code": services.CodeInvalidInput})
		return
	}
	patch, err := services.ParseProfilePatch(raw)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	profile, err := h.ProfileService.Update(c.Request.Context(), CurrentUser(c).ID, patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) SubmitResume(c *gin.Context) {
	var req dtos.ResumeSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: resume_text is required.", "code": services.CodeInvalidInput})
		return
	}
	resume, err := h.ResumeService.Submit(c.Request.Context(), CurrentUser(c).ID, req.ResumeText)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, resume)
}

func (h *ProfileHandler) GetResume(c *gin.Context) {
	resume, err := h.ResumeService.GetActive(c.Request.Context(), CurrentUser(c).ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resume)
}
