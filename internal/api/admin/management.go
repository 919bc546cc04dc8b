package admin

import (
	"github.com/decentralizedkaggle/DKaggle/internal/catalog"
	"github.com/decentralizedkaggle/DKaggle/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// seed loads the contests in contest.seed_dir that are not stored yet.
func (h *Handler) seed(c *gin.Context) {
	zap.S().Info("starting seed process...")

	report, err := catalog.LoadSeedDir(c.Request.Context(), h.svc.DB, h.cfg.Contest.SeedDir, h.defaults, h.now())
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	for range report.Created {
		h.svc.Metrics.ContestCreated()
	}
	util.Success(c, report, "Seed successful")
}

// sweep closes ended contests now instead of waiting for the next tick.
func (h *Handler) sweep(c *gin.Context) {
	ids, err := h.svc.Sweeper.Sweep(c.Request.Context())
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	util.Success(c, gin.H{"closed": ids}, "Sweep finished")
}
