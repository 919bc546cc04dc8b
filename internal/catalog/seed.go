package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/decentralizedkaggle/DKaggle/internal/database"
	"github.com/decentralizedkaggle/DKaggle/internal/database/models"
	"github.com/decentralizedkaggle/DKaggle/internal/ranking"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type SeedParticipant struct {
	Wallet        string    `yaml:"wallet"`
	ModelAccuracy float64   `yaml:"model_accuracy"`
	SubmittedAt   time.Time `yaml:"submitted_at"`
}

type SeedContract struct {
	Address string `yaml:"address"`
}

// SeedContest is one contest in a seed file. A file may hold several, as separate YAML documents.
type SeedContest struct {
	ID             string               `yaml:"id"`
	Title          string               `yaml:"title"`
	Subtitle       string               `yaml:"subtitle"`
	Description    string               `yaml:"description"`
	CreatedAt      time.Time            `yaml:"created_at"`
	EndDate        time.Time            `yaml:"end_date"`
	Status         models.ContestStatus `yaml:"status"`
	DatasetName    string               `yaml:"dataset_name"`
	DatasetURL     string               `yaml:"dataset_url"`
	Image          string               `yaml:"image"`
	TotalPrizePool float64              `yaml:"total_prize_pool"`
	PlatformFee    *float64             `yaml:"platform_fee"`
	Winners        []models.Winner      `yaml:"winners"`
	Rules          []string             `yaml:"rules"`
	Contract       SeedContract         `yaml:"contract"`
	HostWallet     string               `yaml:"host_wallet"`
	Participants   []SeedParticipant    `yaml:"participants"`
}

// SeedReport counts what a seed run did.
type SeedReport struct {
	Files   int      `json:"files"`
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// FindSeedFiles returns the .yaml and .yml files directly under dir, sorted by name.
func FindSeedFiles(dir string) ([]string, error) {
	if dir == "" {
		zap.S().Warn("contest.seed_dir is not configured. No seed contests will be loaded.")
		return []string{}, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed directory '%s': %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !entry.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ParseSeedFile reads every contest document in a seed file.
func ParseSeedFile(path string) ([]SeedContest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var seeds []SeedContest
	dec := yaml.NewDecoder(f)
	for {
		var s SeedContest
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		seeds = append(seeds, s)
	}
	return seeds, nil
}

// Contest shapes a seed entry into a stored contest. The leaderboard is built by
// replaying the listed participants through the ranking upsert in file order.
func (s SeedContest) Contest(d Defaults, now time.Time) (*models.Contest, error) {
	if s.ID == "" {
		return nil, invalid("seed contest %q has no id", s.Title)
	}
	if s.PlatformFee != nil {
		d.PlatformFee = *s.PlatformFee
	}

	c := &models.Contest{
		ID: s.ID,
		Metadata: models.ContestMetadata{
			CreatedAt: s.CreatedAt.UTC(),
			Status:    s.Status,
		},
		HostInfo: models.HostInfo{Wallet: strings.TrimSpace(s.HostWallet)},
	}
	if c.Metadata.CreatedAt.IsZero() {
		c.Metadata.CreatedAt = now.UTC()
	}
	if c.Metadata.Status == "" {
		c.Metadata.Status = models.StatusOngoing
		if !s.EndDate.After(now) {
			c.Metadata.Status = models.StatusPast
		}
	}

	err := Apply(c, CreateRequest{
		Title:           s.Title,
		Subtitle:        s.Subtitle,
		Description:     s.Description,
		EndDate:         s.EndDate,
		DatasetName:     s.DatasetName,
		DatasetURL:      s.DatasetURL,
		Image:           s.Image,
		TotalPrizePool:  s.TotalPrizePool,
		Winners:         s.Winners,
		Rules:           s.Rules,
		ContractAddress: s.Contract.Address,
	}, d)
	if err != nil {
		return nil, fmt.Errorf("seed contest %s: %w", s.ID, err)
	}

	board := models.Participants{List: []models.ParticipantEntry{}}
	for _, p := range s.Participants {
		at := p.SubmittedAt.UTC()
		if at.IsZero() {
			at = c.Metadata.CreatedAt
		}
		if board, err = ranking.UpsertSubmission(board, p.Wallet, p.ModelAccuracy, at); err != nil {
			return nil, fmt.Errorf("seed contest %s: %w", s.ID, err)
		}
	}
	c.Participants = board
	return c, nil
}

// LoadSeedDir creates every seed contest under dir that is not stored yet.
// Contests that already exist are left untouched, so loading twice is harmless.
func LoadSeedDir(ctx context.Context, db *gorm.DB, dir string, d Defaults, now time.Time) (*SeedReport, error) {
	files, err := FindSeedFiles(dir)
	if err != nil {
		return nil, err
	}

	report := &SeedReport{Files: len(files), Created: []string{}, Skipped: []string{}}
	for _, path := range files {
		seeds, err := ParseSeedFile(path)
		if err != nil {
			return report, err
		}
		for _, s := range seeds {
			created, err := seedOne(ctx, db, s, d, now)
			if err != nil {
				return report, fmt.Errorf("%s: %w", path, err)
			}
			if created {
				report.Created = append(report.Created, s.ID)
			} else {
				report.Skipped = append(report.Skipped, s.ID)
			}
		}
	}
	zap.S().Infof("seeded %d contests from %d files in '%s' (%d already present)",
		len(report.Created), report.Files, dir, len(report.Skipped))
	return report, nil
}

func seedOne(ctx context.Context, db *gorm.DB, s SeedContest, d Defaults, now time.Time) (bool, error) {
	_, err := database.GetContest(ctx, db, s.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return false, err
	}

	c, err := s.Contest(d, now)
	if err != nil {
		return false, err
	}
	if err := database.CreateContest(ctx, db, c); err != nil {
		return false, err
	}
	return true, nil
}
