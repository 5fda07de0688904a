package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"gorm.io/gorm"
)

type RouterConfig struct {
	DB          *gorm.DB
	Verifier    TokenVerifier
	Users       UserResolver
	AdminAPIKey string
	CORSOrigins []string

	Jobs        *JobHandler
	TrackedJobs *TrackedJobHandler
	Profiles    *ProfileHandler
	Admin       *AdminHandler
}

func NewRouter(cfg RouterConfig, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(log), CORS(cfg.CORSOrigins))

	api := r.Group("/api")
	api.GET("/health", HealthCheck(cfg.DB))

	user := api.Group("")
	user.Use(RequireAuth(cfg.Verifier, cfg.Users, log))
	{
		user.POST("/jobs/submit", cfg.Jobs.SubmitJob)
		user.GET("/jobs/recommendations", cfg.Jobs.Recommendations)

		user.GET("/tracked-jobs", cfg.TrackedJobs.List)
		user.PUT("/tracked-jobs/:id", cfg.TrackedJobs.Update)
		user.DELETE("/tracked-jobs/:id", cfg.TrackedJobs.Delete)

		user.GET("/profile", cfg.Profiles.GetProfile)
		user.PUT("/profile", cfg.Profiles.UpdateProfile)
		user.GET("/profile/resume", cfg.Profiles.GetResume)
		user.POST("/profile/resume", cfg.Profiles.SubmitResume)
	}

	admin := api.Group("/admin")
	admin.Use(RequireAdminKey(cfg.AdminAPIKey))
	{
		admin.POST("/jobs/check-url-validity", cfg.Admin.CheckURLValidity)
		admin.POST("/tracked-jobs/check-expiration", cfg.Admin.CheckTrackedJobExpiration)
		admin.POST("/analyses/refresh", cfg.Admin.RefreshAnalyses)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found.", "code": "NOT_FOUND"})
	})
	return r
}

// HealthCheck reports whether the database answers a ping.
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
