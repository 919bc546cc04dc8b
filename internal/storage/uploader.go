package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/decentralizedkaggle/DKaggle/internal/config"
)

type UploadResult struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	ETag     string `json:"etag,omitempty"`
}

// FileUploader stores contest datasets and images.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// New builds the uploader selected by cfg.Backend.
func New(cfg config.Assets) (FileUploader, error) {
	switch cfg.Backend {
	case "r2":
		return NewCloudflareR2Uploader(CloudflareR2UploaderConfig{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.Bucket,
			PublicBaseURL:   cfg.PublicBaseURL,
		})
	case "local", "":
		base := cfg.PublicBaseURL
		if base == "" {
			base = "/api/v1/assets/"
		}
		return NewLocalUploader(cfg.LocalDir, base)
	default:
		return nil, fmt.Errorf("unsupported asset backend %q", cfg.Backend)
	}
}

// urlUnsafe replaces characters that would end or corrupt the path of a public URL.
var urlUnsafe = strings.NewReplacer("#", "_", "?", "_", "%", "_")

// ContestAssetKey builds the object key of a file uploaded for a contest,
// keeping only the base name and extension of the client's filename.
func ContestAssetKey(contestID, kind, assetID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = urlUnsafe.Replace(name)
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return path.Join("contests", contestID, kind, assetID+"-"+name)
}

// joinPublicURL resolves key against base, which may be an absolute URL or a path.
func joinPublicURL(base, key string) string {
	if key == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	keyURL, err := url.Parse(strings.TrimPrefix(key, "/"))
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(keyURL).String()
}
