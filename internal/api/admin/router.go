package admin

import (
	"github.com/decentralizedkaggle/DKaggle/internal/api"
	"github.com/decentralizedkaggle/DKaggle/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewAdminRouter creates and configures the admin Gin engine.
func NewAdminRouter(cfg *config.Config, svc *api.Services) *gin.Engine {
	return newRouter(cfg, NewHandler(cfg, svc))
}

func newRouter(cfg *config.Config, h *Handler) *gin.Engine {
	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))
	r.Use(api.MetricsMiddleware("admin", h.svc.Metrics))

	// Scraped without the admin key; the admin server listens on a private address.
	gatherer := h.svc.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	v1.Use(api.AdminKeyMiddleware(cfg.Admin.KeyHash))
	{
		// Session tokens
		v1.POST("/tokens", h.issueToken)

		// Management
		v1.POST("/seed", h.seed)
		v1.POST("/sweep", h.sweep)

		// Contest Management
		contests := v1.Group("/contests")
		{
			contests.GET("", h.getAllContests)
			contests.GET("/:id", h.getContest)
			contests.PUT("/:id", h.updateContest)
			contests.DELETE("/:id", h.deleteContest)
			contests.PATCH("/:id/status", h.updateContestStatus)
			contests.GET("/:id/leaderboard", h.getContestLeaderboard)
			contests.POST("/:id/repair", h.repairLeaderboard)

			// Graded submissions
			contests.POST("/:id/submissions", h.recordSubmission)
			contests.GET("/:id/submissions", h.getContestSubmissions)
		}
	}

	return r
}
