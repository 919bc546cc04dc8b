package database

import (
	"context"
	"fmt"
	"time"

	"github.com/decentralizedkaggle/DKaggle/internal/database/models"
	"gorm.io/gorm"
)

// Contest CRUD

// CreateContest validates and inserts a new contest document.
func CreateContest(ctx context.Context, db *gorm.DB, contest *models.Contest) error {
	if err := contest.Validate(); err != nil {
		return err
	}
	return wrap(contest.ID, db.WithContext(ctx).Create(contest).Error)
}

func GetContest(ctx context.Context, db *gorm.DB, id string) (*models.Contest, error) {
	var contest models.Contest
	if err := db.WithContext(ctx).Where("id = ?", id).First(&contest).Error; err != nil {
		return nil, wrap(id, err)
	}
	return &contest, nil
}

type ContestOrder string

const (
	OrderNewest ContestOrder = "newest"
	OrderEnding ContestOrder = "ending"
)

// ContestFilter selects contests for a listing. Zero values mean "any".
type ContestFilter struct {
	Status     models.ContestStatus
	HostWallet string
	Order      ContestOrder
	Limit      int
}

func ListContests(ctx context.Context, db *gorm.DB, filter ContestFilter) ([]models.Contest, error) {
	q := db.WithContext(ctx).Model(&models.Contest{})
	if filter.Status != "" {
		q = q.Where("meta_status = ?", filter.Status)
	}
	if filter.HostWallet != "" {
		q = q.Where("host_wallet = ?", filter.HostWallet)
	}
	switch filter.Order {
	case OrderEnding:
		q = q.Order("meta_end_date asc")
	default:
		q = q.Order("meta_created_at desc")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var contests []models.Contest
	if err := q.Find(&contests).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return contests, nil
}

// UpdateContest overwrites the host-editable parts of a contest: metadata,
// prizes, rules and contract. The leaderboard and its version are left alone.
func UpdateContest(ctx context.Context, db *gorm.DB, contest *models.Contest) error {
	if err := contest.Validate(); err != nil {
		return err
	}
	res := db.WithContext(ctx).Model(&models.Contest{}).
		Where("id = ?", contest.ID).
		UpdateColumns(map[string]interface{}{
			"meta_title":            contest.Metadata.Title,
			"meta_subtitle":         contest.Metadata.Subtitle,
			"meta_description":      contest.Metadata.Description,
			"meta_end_date":         contest.Metadata.EndDate,
			"meta_status":           contest.Metadata.Status,
			"meta_dataset_name":     contest.Metadata.DatasetName,
			"meta_dataset_url":      contest.Metadata.DatasetURL,
			"meta_image":            contest.Metadata.Image,
			"prizes":                contest.Prizes,
			"rules":                 contest.Rules,
			"contract_address":      contest.Contract.Address,
			"contract_chain":        contest.Contract.Chain,
			"contract_chain_id":     contest.Contract.ChainID,
			"contract_explorer_url": contest.Contract.ExplorerURL,
			"contract_owner":        contest.Contract.Owner,
			"updated_at":            time.Now().UTC(),
		})
	if res.Error != nil {
		return wrap(contest.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap(contest.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

func SetContestStatus(ctx context.Context, db *gorm.DB, id string, status models.ContestStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q is not ongoing or past", models.ErrInvalidDocument, status)
	}
	res := db.WithContext(ctx).Model(&models.Contest{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"meta_status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return wrap(id, res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap(id, gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteContest removes a contest together with its submission log.
func DeleteContest(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Contest{}, "id = ?", id)
		if res.Error != nil {
			return wrap(id, res.Error)
		}
		if res.RowsAffected == 0 {
			return wrap(id, gorm.ErrRecordNotFound)
		}
		return wrap(id, tx.Delete(&models.Submission{}, "contest_id = ?", id).Error)
	})
}

// ExpireContests marks every ongoing contest whose end date is not after now as past
// and returns the ids it moved.
func ExpireContests(ctx context.Context, db *gorm.DB, now time.Time) ([]string, error) {
	now = now.UTC()
	var ids []string
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Contest{}).
			Where("meta_status = ? AND meta_end_date <= ?", models.StatusOngoing, now).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&models.Contest{}).
			Where("id IN ?", ids).
			UpdateColumns(map[string]interface{}{"meta_status": models.StatusPast, "updated_at": now}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return ids, nil
}

// Submission log

func CreateSubmission(ctx context.Context, db *gorm.DB, sub *models.Submission) error {
	return wrap(sub.ContestID, db.WithContext(ctx).Create(sub).Error)
}

func GetSubmissionsByContest(ctx context.Context, db *gorm.DB, contestID string) ([]models.Submission, error) {
	var subs []models.Submission
	if err := db.WithContext(ctx).Where("contest_id = ?", contestID).Order("submitted_at desc").Find(&subs).Error; err != nil {
		return nil, wrap(contestID, err)
	}
	return subs, nil
}

func GetSubmissionsByWallet(ctx context.Context, db *gorm.DB, wallet string) ([]models.Submission, error) {
	var subs []models.Submission
	if err := db.WithContext(ctx).Where("wallet = ?", wallet).Order("submitted_at desc").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return subs, nil
}
