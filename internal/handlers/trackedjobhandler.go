package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/services"
)

type TrackedJobHandler struct {
	TrackedJobService *services.TrackedJobService
	log               *logger.Logger
}

func NewTrackedJobHandler(s *services.TrackedJobService, log *logger.Logger) *TrackedJobHandler {
	return &TrackedJobHandler{TrackedJobService: s, log: log.With("handler", "TrackedJobHandler")}
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id.", "code": services.CodeInvalidInput})
		return 0, false
	}
	return uint(id), true
}

func (h *TrackedJobHandler) List(c *gin.Context) {
	page, okPage := queryInt(c, "page", 1)
	limit, okLimit := queryInt(c, "limit", services.DefaultPageLimit)
	if !okPage || !okLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page and limit must be integers.", "code": services.CodeInvalidInput})
		return
	}
	list, err := h.TrackedJobService.List(c.Request.Context(), CurrentUser(c).ID, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *TrackedJobHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body.", "code": services.CodeInvalidInput})
		return
	}
	patch, err := services.ParseTrackedJobPatch(raw)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	view, err := h.TrackedJobService.Update(c.Request.Context(), CurrentUser(c).ID, id, patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *TrackedJobHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.TrackedJobService.Delete(c.Request.Context(), CurrentUser(c).ID, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tracked job deleted."})
}
