package user

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/decentralizedkaggle/DKaggle/internal/catalog"
	"github.com/decentralizedkaggle/DKaggle/internal/database"
	"github.com/decentralizedkaggle/DKaggle/internal/database/models"
	"github.com/decentralizedkaggle/DKaggle/internal/ranking"
	"github.com/decentralizedkaggle/DKaggle/internal/util"
	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

func (h *Handler) getLinks(c *gin.Context) {
	if h.cfg.Links == nil {
		// Ensure we return an empty array instead of null if links are not configured
		util.Success(c, []interface{}{}, "Links retrieved successfully")
		return
	}
	util.Success(c, h.cfg.Links, "Links retrieved successfully")
}

// parseLimit reads the "limit" query parameter, falling back to def. A positive
// ceiling caps it, and 0 then means the ceiling.
func parseLimit(c *gin.Context, def, ceiling int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer")
	}
	if ceiling > 0 && (n == 0 || n > ceiling) {
		n = ceiling
	}
	return n, nil
}

func (h *Handler) getContests(c *gin.Context) {
	status := models.ContestStatus(c.DefaultQuery("status", string(models.StatusOngoing)))
	if !status.Valid() {
		util.Error(c, http.StatusBadRequest, "status must be ongoing or past")
		return
	}
	order := database.ContestOrder(c.DefaultQuery("order", string(database.OrderNewest)))
	if order != database.OrderNewest && order != database.OrderEnding {
		util.Error(c, http.StatusBadRequest, "order must be newest or ending")
		return
	}
	limit, err := parseLimit(c, defaultListLimit, maxListLimit)
	if err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	contests, err := database.ListContests(c.Request.Context(), h.svc.DB, database.ContestFilter{
		Status:     status,
		HostWallet: c.Query("host"),
		Order:      order,
		Limit:      limit,
	})
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

func (h *Handler) getContestLeaderboard(c *gin.Context) {
	limit, err := parseLimit(c, 0, 0)
	if err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	current, err := h.svc.Leaderboard.Current(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	util.Success(c, gin.H{
		"contestId": current.ContestID,
		"version":   current.Version,
		"count":     current.Participants.Count,
		"list":      ranking.Top(current.Participants, limit),
	}, "Leaderboard retrieved successfully")
}

func (h *Handler) getStanding(c *gin.Context) {
	entry, err := h.svc.Leaderboard.Standing(c.Request.Context(), c.Param("id"), c.Param("wallet"))
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	util.Success(c, entry, "Standing retrieved successfully")
}
