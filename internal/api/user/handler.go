package user

import (
	"time"

	"github.com/decentralizedkaggle/DKaggle/internal/api"
	"github.com/decentralizedkaggle/DKaggle/internal/catalog"
	"github.com/decentralizedkaggle/DKaggle/internal/config"
)

// Handler holds all dependencies for the user API handlers.
type Handler struct {
	cfg      *config.Config
	svc      *api.Services
	defaults catalog.Defaults
	now      func() time.Time
}

// NewHandler creates a new user handler with its dependencies.
func NewHandler(cfg *config.Config, svc *api.Services) *Handler {
	return &Handler{
		cfg:      cfg,
		svc:      svc,
		defaults: catalog.DefaultsFrom(cfg.Contest),
		now:      time.Now,
	}
}
