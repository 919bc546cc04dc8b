package user

import (
	"net/http"

	"github.com/decentralizedkaggle/DKaggle/internal/api"
	"github.com/decentralizedkaggle/DKaggle/internal/database"
	"github.com/decentralizedkaggle/DKaggle/internal/util"
	"github.com/gin-gonic/gin"
)

type submitRequest struct {
	ModelAccuracy *float64 `json:"model_accuracy" binding:"required"`
}

// submitScore records the caller's model accuracy on a contest's leaderboard.
func (h *Handler) submitScore(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	res, err := h.svc.Leaderboard.Submit(c.Request.Context(), c.Param("id"), api.Wallet(c), *req.ModelAccuracy)
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	util.Success(c, res, "Submission recorded")
}

func (h *Handler) getUserSubmissions(c *gin.Context) {
	subs, err := database.GetSubmissionsByWallet(c.Request.Context(), h.svc.DB, api.Wallet(c))
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	util.Success(c, subs, "Submissions retrieved successfully")
}
