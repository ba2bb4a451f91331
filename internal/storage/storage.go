package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hostelwatch/backend/internal/config"
	"hostelwatch/backend/internal/hashchain"
	"hostelwatch/backend/internal/ledger"
	"hostelwatch/backend/internal/models"
)

// Service persists complaints in PostgreSQL via GORM and publishes committed
// log events through Redis. It implements ledger.Store, ledger.Directory and
// ledger.Publisher.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// AutoMigrate creates or updates the complaint tables.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.Complaint{},
		&models.ComplaintParty{},
		&models.LogRecord{},
	)
}

// CreateComplaintTx writes the complaint row, its parties and the first log
// record in a single transaction. Nothing is visible unless all three commit.
func (s *Service) CreateComplaintTx(c *models.Complaint, parties []models.ComplaintParty, first *models.LogRecord) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		if len(parties) > 0 {
			if err := tx.Create(&parties).Error; err != nil {
				return err
			}
		}
		return tx.Create(first).Error
	})
}

// Complaint loads one complaint by ID. A missing row returns (nil, nil).
func (s *Service) Complaint(id string) (*models.Complaint, error) {
	var c models.Complaint
	err := s.DB.Where("complaint_id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Parties returns a complaint's participants, primaries first.
func (s *Service) Parties(id string) ([]models.ComplaintParty, error) {
	var parties []models.ComplaintParty
	err := s.DB.Where("complaint_id = ?", id).
		Order("is_primary desc, cp_id asc").
		Find(&parties).Error
	if err != nil {
		return nil, err
	}
	return parties, nil
}

// Logs returns a complaint's log records in chain order.
func (s *Service) Logs(id string) ([]models.LogRecord, error) {
	var logs []models.LogRecord
	err := s.DB.Where("complaint_id = ?", id).
		Order("created_on asc, log_id asc").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// TipHash returns the most recent record hash for a complaint, or the root
// sentinel when no record exists yet.
func (s *Service) TipHash(id string) (string, error) {
	return s.tipHash(s.DB, id, false)
}

// forUpdate adds a row lock on dialects that support it. SQLite (used in
// tests) serializes writers on its own and rejects FOR UPDATE.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (s *Service) tipHash(tx *gorm.DB, id string, locked bool) (string, error) {
	q := tx.Model(&models.LogRecord{}).
		Where("complaint_id = ?", id).
		Order("created_on desc, log_id desc")
	if locked {
		q = forUpdate(q)
	}

	var last models.LogRecord
	err := q.First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return hashchain.RootHash, nil
	}
	if err != nil {
		return "", err
	}
	return last.RecordHash, nil
}

// AppendLog applies the complaint field updates and inserts the chained log
// record in one transaction. The tip is re-read under a row lock inside the
// transaction; if it no longer matches expectedTip the whole write aborts
// with ledger.ErrConcurrentModification, so a stale writer can never fork
// the chain.
func (s *Service) AppendLog(rec *models.LogRecord, expectedTip string, updates map[string]any) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		// Serialize competing appends on the complaint row.
		var c models.Complaint
		if err := forUpdate(tx).
			Where("complaint_id = ?", rec.ComplaintID).
			First(&c).Error; err != nil {
			return err
		}

		tip, err := s.tipHash(tx, rec.ComplaintID, true)
		if err != nil {
			return err
		}
		if tip != expectedTip {
			return fmt.Errorf("%w: tip %s, expected %s", ledger.ErrConcurrentModification, tip, expectedTip)
		}

		if len(updates) > 0 {
			if err := tx.Model(&models.Complaint{}).
				Where("complaint_id = ?", rec.ComplaintID).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Create(rec).Error
	})
}

// FindStaff resolves an assignment target: the user must exist and hold the
// expected role. A missing or mismatched target returns (nil, nil).
func (s *Service) FindStaff(vitID, role string) (*models.User, error) {
	u, err := s.UserByVit(vitID)
	if err != nil || u == nil {
		return nil, err
	}
	for _, r := range u.Roles {
		if r == role {
			return u, nil
		}
	}
	return nil, nil
}

// UserByVit loads a directory entry. A missing row returns (nil, nil).
func (s *Service) UserByVit(vitID string) (*models.User, error) {
	var u models.User
	err := s.DB.Where("vit_id = ?", vitID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// RolesFor returns the authoritative role set for an actor. Unknown actors
// have no roles and therefore no permissions.
func (s *Service) RolesFor(vitID string) ([]string, error) {
	u, err := s.UserByVit(vitID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	return u.Roles, nil
}

// SaveUser upserts a directory entry.
func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

// PublishLogEvent broadcasts a committed log event over Redis Pub/Sub.
func (s *Service) PublishLogEvent(ev models.LogEvent) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, config.LedgerEventsChannel, string(payload)).Err()
}

// AllowVerifyAttempt enforces the receipt-check rate limit: a rolling counter
// per caller and complaint in Redis. It fails open when Redis is down so a
// cache outage cannot block legitimate receipt checks.
func (s *Service) AllowVerifyAttempt(callerKey, complaintID string) bool {
	if s.Redis == nil {
		return true
	}
	key := "verify:" + callerKey + ":" + complaintID
	n, err := s.Redis.Incr(s.Ctx, key).Result()
	if err != nil {
		return true
	}
	if n == 1 {
		s.Redis.Expire(s.Ctx, key, config.VerifyCodeWindow)
	}
	return n <= config.VerifyCodeMaxAttempts
}
