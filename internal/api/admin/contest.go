package admin

import (
	"net/http"
	"strconv"

	"github.com/decentralizedkaggle/DKaggle/internal/catalog"
	"github.com/decentralizedkaggle/DKaggle/internal/database"
	"github.com/decentralizedkaggle/DKaggle/internal/database/models"
	"github.com/decentralizedkaggle/DKaggle/internal/pubsub"
	"github.com/decentralizedkaggle/DKaggle/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) getAllContests(c *gin.Context) {
	filter := database.ContestFilter{
		Status:     models.ContestStatus(c.Query("status")),
		HostWallet: c.Query("host"),
		Order:      database.ContestOrder(c.Query("order")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		util.Error(c, http.StatusBadRequest, "status must be ongoing or past")
		return
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			util.Error(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	contests, err := database.ListContests(c.Request.Context(), h.svc.DB, filter)
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	util.Success(c, catalog.Views(contests, h.now()), "Contests loaded")
}

func (h *Handler) getContest(c *gin.Context) {
	contest, err := database.GetContest(c.Request.Context(), h.svc.DB, c.Param("id"))
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	util.Success(c, catalog.View(contest, h.now()), "Contest found")
}

// updateContest replaces the editable parts of a contest. Dataset, image and
// contract address fields left empty keep their current values.
func (h *Handler) updateContest(c *gin.Context) {
	var req catalog.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	contest, err := database.GetContest(ctx, h.svc.DB, c.Param("id"))
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	if req.DatasetName == "" {
		req.DatasetName = contest.Metadata.DatasetName
	}
	if req.DatasetURL == "" {
		req.DatasetURL = contest.Metadata.DatasetURL
	}
	if req.Image == "" {
		req.Image = contest.Metadata.Image
	}
	if req.ContractAddress == "" {
		req.ContractAddress = contest.Contract.Address
	}

	if err := catalog.Apply(contest, req, h.defaults); err != nil {
		util.ErrorFrom(c, err)
		return
	}
	if err := database.UpdateContest(ctx, h.svc.DB, contest); err != nil {
		util.ErrorFrom(c, err)
		return
	}
	zap.S().Infof("contest %s updated", contest.ID)
	util.Success(c, catalog.View(contest, h.now()), "Contest updated successfully")
}

func (h *Handler) deleteContest(c *gin.Context) {
	id := c.Param("id")
	if err := database.DeleteContest(c.Request.Context(), h.svc.DB, id); err != nil {
		util.ErrorFrom(c, err)
		return
	}
	h.svc.Broker.CloseTopic(pubsub.LeaderboardTopic(id))
	zap.S().Infof("contest %s deleted", id)
	util.Success(c, nil, "Contest deleted successfully")
}

type statusRequest struct {
	Status models.ContestStatus `json:"status" binding:"required"`
}

func (h *Handler) updateContestStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	id := c.Param("id")
	if err := database.SetContestStatus(c.Request.Context(), h.svc.DB, id, req.Status); err != nil {
		util.ErrorFrom(c, err)
		return
	}
	zap.S().Infof("contest %s set to %s", id, req.Status)
	util.Success(c, gin.H{"id": id, "status": req.Status}, "Contest status updated")
}

func (h *Handler) getContestLeaderboard(c *gin.Context) {
	current, err := h.svc.Leaderboard.Current(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	util.Success(c, current, "Leaderboard retrieved successfully")
}

func (h *Handler) repairLeaderboard(c *gin.Context) {
	id := c.Param("id")
	repaired, err := catalog.RepairLeaderboard(c.Request.Context(), h.svc.Store, id)
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	util.Success(c, gin.H{"id": id, "repaired": repaired}, "Leaderboard checked")
}
