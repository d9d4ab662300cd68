package storage

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/gheehive-storefront/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// farFuture stands in for "never expires" so expires_at can stay NOT NULL.
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// SQL stores slots as rows of the client_states table.
type SQL struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewSQL(db *gorm.DB, ttl time.Duration) *SQL {
	return &SQL{db: db, ttl: ttl, now: time.Now}
}

func (s *SQL) Load(ctx context.Context, visitorID, slot string) ([]byte, bool, error) {
	if err := checkKey(visitorID, slot); err != nil {
		return nil, false, err
	}
	var row models.ClientState
	err := s.db.WithContext(ctx).
		Where("visitor_id = ? AND slot = ? AND expires_at > ?", visitorID, slot, s.now().UTC()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row.Value, true, nil
}

func (s *SQL) Save(ctx context.Context, visitorID, slot string, value []byte) error {
	if err := checkKey(visitorID, slot); err != nil {
		return err
	}
	now := s.now().UTC()
	expiresAt := expiry(now, s.ttl)
	if expiresAt.IsZero() {
		expiresAt = farFuture
	}
	if value == nil {
		value = []byte{}
	}
	row := models.ClientState{
		VisitorID: visitorID,
		Slot:      slot,
		Value:     value,
		ExpiresAt: expiresAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "visitor_id"}, {Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&row).Error
}

func (s *SQL) Delete(ctx context.Context, visitorID string, slots ...string) error {
	if len(slots) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("visitor_id = ? AND slot IN ?", visitorID, slots).
		Delete(&models.ClientState{}).Error
}

// PurgeExpired removes rows past their expiry and reports how many were dropped.
func (s *SQL) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now().UTC()).
		Delete(&models.ClientState{})
	return res.RowsAffected, res.Error
}
