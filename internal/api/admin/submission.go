package admin

import (
	"net/http"

	"github.com/decentralizedkaggle/DKaggle/internal/database"
	"github.com/decentralizedkaggle/DKaggle/internal/util"
	"github.com/gin-gonic/gin"
)

type gradedSubmission struct {
	Wallet        string   `json:"wallet" binding:"required"`
	ModelAccuracy *float64 `json:"model_accuracy" binding:"required"`
}

// recordSubmission applies a score graded outside this server on behalf of a wallet.
func (h *Handler) recordSubmission(c *gin.Context) {
	var req gradedSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	res, err := h.svc.Leaderboard.Submit(c.Request.Context(), c.Param("id"), req.Wallet, *req.ModelAccuracy)
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	util.Success(c, res, "Submission recorded")
}

func (h *Handler) getContestSubmissions(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	if _, err := database.GetContest(ctx, h.svc.DB, id); err != nil {
		util.ErrorFrom(c, err)
		return
	}
	subs, err := database.GetSubmissionsByContest(ctx, h.svc.DB, id)
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	util.Success(c, subs, "Submissions retrieved successfully")
}
