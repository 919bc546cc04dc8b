// Package catalog shapes contest documents and runs the jobs that keep the
// stored catalog consistent: seeding, the status sweep and leaderboard repair.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/decentralizedkaggle/DKaggle/internal/auth"
	"github.com/decentralizedkaggle/DKaggle/internal/config"
	"github.com/decentralizedkaggle/DKaggle/internal/database/models"
	"github.com/google/uuid"
)

// ErrInvalidContest is returned when a create or update request cannot be shaped into a contest.
var ErrInvalidContest = errors.New("invalid contest")

// placeIcons are the default winner icons by place; later places get the last one.
var placeIcons = []string{"🥇", "🥈", "🥉", "🏅"}

// Defaults fill in what a host does not choose.
type Defaults struct {
	PlatformFee     float64
	Chain           string
	ChainID         int64
	ExplorerBaseURL string
	Rules           []string
}

func DefaultsFrom(cfg config.Contest) Defaults {
	return Defaults{
		PlatformFee:     cfg.PlatformFee,
		Chain:           cfg.Chain,
		ChainID:         cfg.ChainID,
		ExplorerBaseURL: cfg.ExplorerBaseURL,
		Rules:           cfg.DefaultRules,
	}
}

// CreateRequest is what a host submits to open a contest.
type CreateRequest struct {
	Title          string          `json:"title"`
	Subtitle       string          `json:"subtitle"`
	Description    string          `json:"description"`
	EndDate        time.Time       `json:"endDate"`
	DatasetName    string          `json:"datasetName"`
	DatasetURL     string          `json:"datasetUrl"`
	Image          string          `json:"image"`
	TotalPrizePool float64         `json:"totalPrizePool"`
	Winners        []models.Winner `json:"winners"`
	Rules          []string        `json:"rules"`
	// ContractAddress is the escrow contract the host's wallet deployed for this contest.
	ContractAddress string `json:"contractAddress"`
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidContest, fmt.Sprintf(format, args...))
}

// Build turns a host's request into a new ongoing contest with an empty leaderboard.
func Build(req CreateRequest, hostWallet string, d Defaults, now time.Time) (*models.Contest, error) {
	hostWallet = strings.TrimSpace(hostWallet)
	if hostWallet == "" {
		return nil, invalid("host wallet is required")
	}
	now = now.UTC()
	if !req.EndDate.After(now) {
		return nil, invalid("endDate must be in the future")
	}

	c := &models.Contest{
		ID: uuid.NewString(),
		Metadata: models.ContestMetadata{
			CreatedAt: now,
			Status:    models.StatusOngoing,
		},
		HostInfo:     models.HostInfo{Wallet: hostWallet},
		Participants: models.Participants{Count: 0, List: []models.ParticipantEntry{}},
	}
	if err := Apply(c, req, d); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply overwrites the host-editable parts of c from req: metadata text, end date,
// dataset, image, prizes, rules and contract. Identity, status and leaderboard are kept.
func Apply(c *models.Contest, req CreateRequest, d Defaults) error {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return invalid("title is required")
	}
	if req.EndDate.IsZero() {
		return invalid("endDate is required")
	}

	prizes, err := shapePrizes(req.TotalPrizePool, req.Winners, d.PlatformFee)
	if err != nil {
		return err
	}

	rules := make(models.StringList, 0, len(req.Rules))
	for _, r := range req.Rules {
		if r = strings.TrimSpace(r); r != "" {
			rules = append(rules, r)
		}
	}
	if len(rules) == 0 {
		rules = append(rules, d.Rules...)
	}

	c.Metadata.Title = title
	c.Metadata.Subtitle = strings.TrimSpace(req.Subtitle)
	c.Metadata.Description = req.Description
	c.Metadata.EndDate = req.EndDate.UTC()
	c.Metadata.DatasetName = req.DatasetName
	c.Metadata.DatasetURL = req.DatasetURL
	c.Metadata.Image = req.Image
	c.Prizes = prizes
	c.Rules = rules
	c.Contract = shapeContract(req.ContractAddress, c.HostInfo.Wallet, d)
	return nil
}

func shapePrizes(pool float64, winners []models.Winner, fee float64) (models.Prizes, error) {
	if fee < 0 || fee >= 1 {
		return models.Prizes{}, invalid("platform fee %v is outside [0, 1)", fee)
	}
	out := make([]models.Winner, len(winners))
	seen := make(map[int]bool, len(winners))
	var sum float64
	for i, w := range winners {
		if w.Place == 0 {
			w.Place = i + 1
		}
		if w.Place < 0 || seen[w.Place] {
			return models.Prizes{}, invalid("winner place %d is invalid or repeated", w.Place)
		}
		seen[w.Place] = true
		if w.Amount < 0 || math.IsNaN(w.Amount) || math.IsInf(w.Amount, 0) {
			return models.Prizes{}, invalid("prize for place %d must be a non-negative amount", w.Place)
		}
		if w.Icon == "" {
			w.Icon = placeIcons[min(w.Place, len(placeIcons))-1]
		}
		sum += w.Amount
		out[i] = w
	}

	if math.IsNaN(pool) || math.IsInf(pool, 0) || pool < 0 {
		return models.Prizes{}, invalid("totalPrizePool must be a non-negative amount")
	}
	if pool == 0 {
		pool = sum
	}
	if pool < sum {
		return models.Prizes{}, invalid("totalPrizePool %v is less than the %v awarded to winners", pool, sum)
	}
	return models.Prizes{TotalPrizePool: pool, PlatformFee: fee, Winners: out}, nil
}

func shapeContract(address, owner string, d Defaults) models.Contract {
	address = auth.ChecksumAddress(address)
	explorer := ""
	if address != "" && d.ExplorerBaseURL != "" {
		explorer = d.ExplorerBaseURL + address
	}
	return models.Contract{
		Address:     address,
		Chain:       d.Chain,
		ChainID:     d.ChainID,
		ExplorerURL: explorer,
		Owner:       owner,
	}
}
