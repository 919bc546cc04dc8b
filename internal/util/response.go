package util

import (
	"errors"
	"net/http"

	"github.com/decentralizedkaggle/DKaggle/internal/catalog"
	"github.com/decentralizedkaggle/DKaggle/internal/database"
	"github.com/decentralizedkaggle/DKaggle/internal/database/models"
	"github.com/decentralizedkaggle/DKaggle/internal/leaderboard"
	"github.com/decentralizedkaggle/DKaggle/internal/ranking"
	"github.com/decentralizedkaggle/DKaggle/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Response struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

func Success(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Data:    data,
		Message: message,
	})
}

func Error(c *gin.Context, code int, err interface{}) {
	msg := ""
	switch e := err.(type) {
	case string:
		msg = e
	case error:
		msg = e.Error()
	default:
		msg = "Internal Server Error"
	}

	if code >= http.StatusInternalServerError {
		zap.S().Errorf("API Error: %s", msg)
	} else {
		zap.S().Debugf("API Error: %s", msg)
	}

	c.JSON(code, Response{
		Code:    -1,
		Data:    nil,
		Message: msg,
	})
}

// StatusOf maps a domain error to the HTTP status it is reported with.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, ranking.ErrInvalidInput),
		errors.Is(err, catalog.ErrInvalidContest),
		errors.Is(err, models.ErrInvalidDocument),
		errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, leaderboard.ErrContestClosed):
		return http.StatusForbidden
	case errors.Is(err, database.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, database.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFrom writes err with the status StatusOf picks for it.
func ErrorFrom(c *gin.Context, err error) {
	Error(c, StatusOf(err), err)
}
