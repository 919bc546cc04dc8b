package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/decentralizedkaggle/DKaggle/internal/api"
	"github.com/decentralizedkaggle/DKaggle/internal/catalog"
	"github.com/decentralizedkaggle/DKaggle/internal/database"
	"github.com/decentralizedkaggle/DKaggle/internal/storage"
	"github.com/decentralizedkaggle/DKaggle/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// createContest opens a contest hosted by the caller's wallet. The body is either
// the contest as JSON, or a multipart form with the contest JSON in the "contest"
// field and optional "dataset" and "image" files.
func (h *Handler) createContest(c *gin.Context) {
	wallet := api.Wallet(c)
	maxBytes := h.cfg.Storage.Assets.MaxUploadMB << 20
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}

	var req catalog.CreateRequest
	var form *multipart.Form
	isMultipart := strings.HasPrefix(c.ContentType(), "multipart/form-data")
	if isMultipart {
		var err error
		if form, err = c.MultipartForm(); err != nil {
			util.Error(c, formErrorStatus(err), fmt.Errorf("invalid multipart form: %w", err))
			return
		}
		raw := formValue(form, "contest")
		if raw == "" {
			util.Error(c, http.StatusBadRequest, "multipart field 'contest' is required")
			return
		}
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			util.Error(c, http.StatusBadRequest, fmt.Errorf("invalid contest JSON: %w", err))
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	contest, err := catalog.Build(req, wallet, h.defaults, h.now())
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}

	ctx := c.Request.Context()
	var uploaded []string
	cleanup := func() {
		for _, key := range uploaded {
			if err := h.svc.Uploader.Delete(context.Background(), key); err != nil {
				zap.S().Warnf("failed to remove orphaned asset %s: %v", key, err)
			}
		}
	}

	if isMultipart {
		if file := formFile(form, "dataset"); file != nil {
			res, err := h.upload(ctx, contest.ID, "dataset", file)
			if err != nil {
				util.ErrorFrom(c, err)
				return
			}
			uploaded = append(uploaded, res.Key)
			contest.Metadata.DatasetURL = res.Location
			if contest.Metadata.DatasetName == "" {
				contest.Metadata.DatasetName = file.Filename
			}
		}
		if file := formFile(form, "image"); file != nil {
			if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
				cleanup()
				util.Error(c, http.StatusBadRequest, "image must be an image file")
				return
			}
			res, err := h.upload(ctx, contest.ID, "image", file)
			if err != nil {
				cleanup()
				util.ErrorFrom(c, err)
				return
			}
			uploaded = append(uploaded, res.Key)
			contest.Metadata.Image = res.Location
		}
	}

	if err := database.CreateContest(ctx, h.svc.DB, contest); err != nil {
		cleanup()
		util.ErrorFrom(c, err)
		return
	}
	h.svc.Metrics.ContestCreated()
	zap.S().Infof("wallet %s created contest %s (%s)", wallet, contest.ID, contest.Metadata.Title)

	util.Success(c, catalog.View(contest, h.now()), "Contest created successfully")
}

func (h *Handler) upload(ctx context.Context, contestID, kind string, file *multipart.FileHeader) (*storage.UploadResult, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	key := storage.ContestAssetKey(contestID, kind, uuid.NewString(), file.Filename)
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return h.svc.Uploader.Upload(ctx, key, contentType, src)
}

// formErrorStatus reports oversized bodies as 413 and other parse failures as 400.
func formErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func formValue(form *multipart.Form, name string) string {
	if v := form.Value[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func formFile(form *multipart.Form, name string) *multipart.FileHeader {
	if f := form.File[name]; len(f) > 0 {
		return f[0]
	}
	return nil
}
