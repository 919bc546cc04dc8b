package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type ContestStatus string

const (
	StatusOngoing ContestStatus = "ongoing"
	StatusPast    ContestStatus = "past"
)

// Valid reports whether s is one of the known statuses.
func (s ContestStatus) Valid() bool {
	return s == StatusOngoing || s == StatusPast
}

// ErrInvalidDocument is returned when a contest fails schema validation at the store boundary.
var ErrInvalidDocument = errors.New("invalid contest document")

// scanJSON decodes a JSON column value; sqlite hands back []byte and postgres may hand back string.
func scanJSON(value interface{}, dst interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("type assertion to []byte failed")
	}
}

// ParticipantEntry is one wallet's latest score and rank within a contest.
type ParticipantEntry struct {
	Wallet        string    `json:"wallet"`
	ModelAccuracy float64   `json:"modelAccuracy"`
	SubmittedAt   time.Time `json:"submittedAt"`
	Rank          int       `json:"rank"`
}

// Participants is the leaderboard aggregate embedded in a contest document.
// Count always equals len(List).
type Participants struct {
	Count int                `json:"count"`
	List  []ParticipantEntry `json:"list"`
}

// MarshalJSON always writes list as an array so an empty leaderboard reads as [] rather than null.
func (p Participants) MarshalJSON() ([]byte, error) {
	type alias Participants
	a := alias(p)
	if a.List == nil {
		a.List = []ParticipantEntry{}
	}
	return json.Marshal(a)
}

func (p Participants) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Participants) Scan(value interface{}) error {
	*p = Participants{}
	return scanJSON(value, p)
}

type Winner struct {
	Place  int     `json:"place" yaml:"place"`
	Amount float64 `json:"amount" yaml:"amount"`
	Icon   string  `json:"icon" yaml:"icon"`
}

type Prizes struct {
	TotalPrizePool float64  `json:"totalPrizePool" yaml:"total_prize_pool"`
	PlatformFee    float64  `json:"platformFee" yaml:"platform_fee"`
	Winners        []Winner `json:"winners" yaml:"winners"`
}

func (p Prizes) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Prizes) Scan(value interface{}) error {
	*p = Prizes{}
	return scanJSON(value, p)
}

// StringList stores an ordered list of strings as a JSON array.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	*l = nil
	return scanJSON(value, l)
}

type ContestMetadata struct {
	Title       string        `gorm:"not null" json:"title"`
	Subtitle    string        `json:"subtitle"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `gorm:"index" json:"createdAt"`
	EndDate     time.Time     `gorm:"index" json:"endDate"`
	Status      ContestStatus `gorm:"index;not null" json:"status"`
	DatasetName string        `json:"datasetName"`
	DatasetURL  string        `json:"datasetUrl"`
	Image       string        `json:"image"`
}

type Contract struct {
	Address     string `json:"address"`
	Chain       string `json:"chain"`
	ChainID     int64  `json:"chainId"`
	ExplorerURL string `json:"explorerUrl"`
	Owner       string `json:"owner"`
}

type HostInfo struct {
	Wallet string `gorm:"index" json:"wallet"`
}

// Contest is the document stored per contest. Nested objects are flattened into
// prefixed columns, lists and the leaderboard are stored as JSON text.
type Contest struct {
	ID           string          `gorm:"primaryKey" json:"id"`
	Metadata     ContestMetadata `gorm:"embedded;embeddedPrefix:meta_" json:"metadata"`
	Prizes       Prizes          `gorm:"type:text" json:"prizes"`
	Contract     Contract        `gorm:"embedded;embeddedPrefix:contract_" json:"contract"`
	Rules        StringList      `gorm:"type:text" json:"rules"`
	HostInfo     HostInfo        `gorm:"embedded;embeddedPrefix:host_" json:"hostInfo"`
	Participants Participants    `gorm:"type:text" json:"participants"`
	// Version is bumped on every leaderboard write and guards it against lost updates.
	Version   int64     `gorm:"not null;default:0" json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Validate checks the fields every stored contest must carry.
func (c *Contest) Validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidDocument)
	case c.Metadata.Title == "":
		return fmt.Errorf("%w: metadata.title is required", ErrInvalidDocument)
	case c.Metadata.EndDate.IsZero():
		return fmt.Errorf("%w: metadata.endDate is required", ErrInvalidDocument)
	case !c.Metadata.Status.Valid():
		return fmt.Errorf("%w: metadata.status %q is not ongoing or past", ErrInvalidDocument, c.Metadata.Status)
	case c.HostInfo.Wallet == "":
		return fmt.Errorf("%w: hostInfo.wallet is required", ErrInvalidDocument)
	case c.Participants.Count != len(c.Participants.List):
		return fmt.Errorf("%w: participants.count %d does not match %d entries", ErrInvalidDocument, c.Participants.Count, len(c.Participants.List))
	}
	if c.Prizes.PlatformFee < 0 || c.Prizes.PlatformFee >= 1 {
		return fmt.Errorf("%w: prizes.platformFee must be in [0, 1)", ErrInvalidDocument)
	}
	for _, w := range c.Prizes.Winners {
		if w.Amount < 0 {
			return fmt.Errorf("%w: prize for place %d is negative", ErrInvalidDocument, w.Place)
		}
	}
	return nil
}

// Submission is the append-only audit record of one scored submission.
type Submission struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	ContestID     string    `gorm:"index" json:"contestId"`
	Wallet        string    `gorm:"index" json:"wallet"`
	ModelAccuracy float64   `json:"modelAccuracy"`
	SubmittedAt   time.Time `gorm:"index" json:"submittedAt"`
}
