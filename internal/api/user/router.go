package user

import (
	"github.com/decentralizedkaggle/DKaggle/internal/api"
	"github.com/decentralizedkaggle/DKaggle/internal/config"
	"github.com/gin-gonic/gin"
)

// NewUserRouter creates and configures the user Gin engine.
func NewUserRouter(cfg *config.Config, svc *api.Services) *gin.Engine {
	return newRouter(cfg, NewHandler(cfg, svc))
}

func newRouter(cfg *config.Config, h *Handler) *gin.Engine {
	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))
	r.Use(api.MetricsMiddleware("user", h.svc.Metrics))

	v1 := r.Group("/api/v1")
	{
		// Websocket for live leaderboards
		v1.GET("/ws/contests/:id/leaderboard", h.handleLeaderboardWs)

		// Publicly accessible info
		v1.GET("/links", h.getLinks)
		v1.GET("/contests", h.getContests)
		v1.GET("/contests/:id", h.getContest)
		v1.GET("/contests/:id/leaderboard", h.getContestLeaderboard)
		v1.GET("/contests/:id/standing/:wallet", h.getStanding)

		// Publicly accessible assets
		v1.GET("/assets/*key", h.serveAsset)

		// Authenticated routes
		authed := v1.Group("/")
		authed.Use(api.AuthMiddleware(cfg.Auth.JWT.Secret))
		{
			// Hosting
			authed.POST("/contests", h.createContest)

			// Submissions
			authed.POST("/contests/:id/submissions", h.submitScore)
			authed.GET("/submissions", h.getUserSubmissions)
		}
	}

	return r
}
