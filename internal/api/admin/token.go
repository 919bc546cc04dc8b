package admin

import (
	"net/http"

	"github.com/decentralizedkaggle/DKaggle/internal/auth"
	"github.com/decentralizedkaggle/DKaggle/internal/ranking"
	"github.com/decentralizedkaggle/DKaggle/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type tokenRequest struct {
	Wallet      string `json:"wallet" binding:"required"`
	ExpireHours int    `json:"expire_hours"`
}

// issueToken signs a session token for a wallet whose ownership was checked by the caller.
func (h *Handler) issueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if err := ranking.ValidateWallet(req.Wallet); err != nil {
		util.ErrorFrom(c, err)
		return
	}
	if req.ExpireHours <= 0 {
		req.ExpireHours = h.cfg.Auth.JWT.ExpireHours
	}

	token, err := auth.GenerateJWT(req.Wallet, h.cfg.Auth.JWT.Secret, req.ExpireHours)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	zap.S().Infof("issued a %dh session token for wallet %s", req.ExpireHours, req.Wallet)
	util.Success(c, gin.H{"token": token, "expire_hours": req.ExpireHours}, "Token issued")
}
