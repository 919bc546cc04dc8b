package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("invalid asset key")

// LocalUploader keeps assets on the local filesystem under root.
type LocalUploader struct {
	root          string
	publicBaseURL string
}

func NewLocalUploader(root, publicBaseURL string) (*LocalUploader, error) {
	if root == "" {
		return nil, errors.New("local asset directory is not configured")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create asset directory: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &LocalUploader{root: abs, publicBaseURL: publicBaseURL}, nil
}

// Resolve maps a key to its path on disk, rejecting keys outside the root.
func (u *LocalUploader) Resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	dst := filepath.Join(u.root, clean)
	if !strings.HasPrefix(dst, u.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return dst, nil
}

func (u *LocalUploader) Upload(_ context.Context, key string, _ string, reader io.Reader) (*UploadResult, error) {
	dst, err := u.Resolve(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(io.MultiWriter(f, h), reader); err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("failed to write asset %s: %w", key, err)
	}

	return &UploadResult{
		Key:      key,
		Location: u.GetPublicURL(key),
		ETag:     hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func (u *LocalUploader) Delete(_ context.Context, key string) error {
	dst, err := u.Resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (u *LocalUploader) GetPublicURL(key string) string {
	return joinPublicURL(u.publicBaseURL, key)
}
