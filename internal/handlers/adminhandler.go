package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/services"
)

// AdminHandler exposes the sweeper passes for manual or cron-driven runs.
type AdminHandler struct {
	Sweeper *services.Sweeper
	log     *logger.Logger
}

func NewAdminHandler(s *services.Sweeper, log *logger.Logger) *AdminHandler {
	return &AdminHandler{Sweeper: s, log: log.With("handler", "AdminHandler")}
}

func (h *AdminHandler) CheckURLValidity(c *gin.Context) {
	sum, err := h.Sweeper.CheckURLValidity(c.Request.Context())
	if err != nil {
		respondError(c, h.log, services.NewInternalError("URL validity check failed.", err))
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *AdminHandler) CheckTrackedJobExpiration(c *gin.Context) {
	sum, err := h.Sweeper.CheckTrackedJobExpiration(c.Request.Context())
	if err != nil {
		respondError(c, h.log, services.NewInternalError("Tracked job expiration check failed.", err))
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *AdminHandler) RefreshAnalyses(c *gin.Context) {
	sum, err := h.Sweeper.RefreshAnalyses(c.Request.Context())
	if err != nil {
		respondError(c, h.log, services.NewInternalError("Analysis refresh failed.", err))
		return
	}
	c.JSON(http.StatusOK, sum)
}
