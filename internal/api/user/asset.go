package user

import (
	"net/http"
	"os"

	"github.com/decentralizedkaggle/DKaggle/internal/storage"
	"github.com/decentralizedkaggle/DKaggle/internal/util"
	"github.com/gin-gonic/gin"
)

// serveAsset serves uploaded datasets and images when they are kept on local disk.
// With an object store backend, assets are fetched from its public URL instead.
func (h *Handler) serveAsset(c *gin.Context) {
	local, ok := h.svc.Uploader.(*storage.LocalUploader)
	if !ok {
		util.Error(c, http.StatusNotFound, "assets are not served by this server")
		return
	}

	path, err := local.Resolve(c.Param("key"))
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		util.Error(c, http.StatusNotFound, "asset not found")
		return
	}
	c.File(path)
}
