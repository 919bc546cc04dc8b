package api

import (
	"github.com/decentralizedkaggle/DKaggle/internal/catalog"
	"github.com/decentralizedkaggle/DKaggle/internal/database"
	"github.com/decentralizedkaggle/DKaggle/internal/leaderboard"
	"github.com/decentralizedkaggle/DKaggle/internal/metrics"
	"github.com/decentralizedkaggle/DKaggle/internal/pubsub"
	"github.com/decentralizedkaggle/DKaggle/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Services are the dependencies shared by the user and admin routers.
type Services struct {
	DB          *gorm.DB
	Store       *database.ContestStore
	Leaderboard *leaderboard.Service
	Broker      *pubsub.Broker
	Uploader    storage.FileUploader
	Sweeper     *catalog.Sweeper
	Metrics     *metrics.Recorder
	Gatherer    prometheus.Gatherer
}
