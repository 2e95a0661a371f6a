package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/store"
)

// instanceRow is one orchestration instance.
type instanceRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Input     string `gorm:"type:text;not null"`
	Snapshot  string `gorm:"type:text"`
	Sequence  int64  `gorm:"not null;default:0"`
	Done      bool   `gorm:"index;not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (instanceRow) TableName() string { return "jobflow_instances" }

// InstanceStore implements store.Store on one table.
type InstanceStore struct {
	db *DB
}

var _ store.Store = (*InstanceStore)(nil)

// NewInstanceStore migrates the instances table and returns the store.
func NewInstanceStore(db *DB) (*InstanceStore, error) {
	if err := db.AutoMigrate(&instanceRow{}); err != nil {
		return nil, err
	}
	return &InstanceStore{db: db}, nil
}

func (s *InstanceStore) Create(ctx context.Context, rec *store.Record) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&instanceRow{}).Where("id = ?", rec.InstanceID).Count(&n).Error; err != nil {
			return fmt.Errorf("database: create %s: %w", rec.InstanceID, err)
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", store.ErrExists, rec.InstanceID)
		}
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", store.ErrExists, rec.InstanceID)
			}
			return fmt.Errorf("database: create %s: %w", rec.InstanceID, err)
		}
		return nil
	})
}

func (s *InstanceStore) Get(ctx context.Context, instanceID string) (*store.Record, error) {
	var row instanceRow
	err := s.db.WithContext(ctx).Where("id = ?", instanceID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, instanceID)
	}
	if err != nil {
		return nil, fmt.Errorf("database: get %s: %w", instanceID, err)
	}
	return fromRow(&row)
}

// SaveSnapshot updates the row only when snap.Sequence is newer, so the
// compare and the write happen in one statement.
func (s *InstanceStore) SaveSnapshot(ctx context.Context, snap *dag.StatusSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("database: encoding snapshot %s: %w", snap.InstanceID, err)
	}
	db := s.db.WithContext(ctx)
	res := db.Model(&instanceRow{}).
		Where("id = ? AND sequence < ?", snap.InstanceID, snap.Sequence).
		Updates(map[string]interface{}{
			"snapshot":   string(data),
			"sequence":   snap.Sequence,
			"done":       snap.Done(),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("database: save snapshot %s: %w", snap.InstanceID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := db.Model(&instanceRow{}).Where("id = ?", snap.InstanceID).Count(&n).Error; err != nil {
		return fmt.Errorf("database: save snapshot %s: %w", snap.InstanceID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, snap.InstanceID)
	}
	return nil
}

func (s *InstanceStore) ListActive(ctx context.Context) ([]*store.Record, error) {
	var rows []instanceRow
	if err := s.db.WithContext(ctx).Where("done = ?", false).Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("database: list active: %w", err)
	}
	out := make([]*store.Record, 0, len(rows))
	for i := range rows {
		rec, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *InstanceStore) Delete(ctx context.Context, instanceID string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", instanceID).Delete(&instanceRow{}).Error; err != nil {
		return fmt.Errorf("database: delete %s: %w", instanceID, err)
	}
	return nil
}

func toRow(rec *store.Record) (*instanceRow, error) {
	input, err := json.Marshal(rec.Input)
	if err != nil {
		return nil, fmt.Errorf("database: encoding input %s: %w", rec.InstanceID, err)
	}
	row := &instanceRow{ID: rec.InstanceID, Input: string(input), CreatedAt: rec.CreatedAt}
	if rec.Snapshot != nil {
		snap, err := json.Marshal(rec.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("database: encoding snapshot %s: %w", rec.InstanceID, err)
		}
		row.Snapshot = string(snap)
		row.Sequence = rec.Snapshot.Sequence
		row.Done = rec.Snapshot.Done()
	}
	return row, nil
}

func fromRow(row *instanceRow) (*store.Record, error) {
	rec := &store.Record{InstanceID: row.ID, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}
	if err := json.Unmarshal([]byte(row.Input), &rec.Input); err != nil {
		return nil, fmt.Errorf("database: decoding input %s: %w", row.ID, err)
	}
	if row.Snapshot != "" {
		rec.Snapshot = &dag.StatusSnapshot{}
		if err := json.Unmarshal([]byte(row.Snapshot), rec.Snapshot); err != nil {
			return nil, fmt.Errorf("database: decoding snapshot %s: %w", row.ID, err)
		}
	}
	return rec, nil
}
