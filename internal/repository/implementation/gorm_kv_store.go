package implementation

import (
	"context"
	"errors"

	"voicetask/internal/entity"
	"voicetask/internal/mapper"
	"voicetask/internal/model"
	"voicetask/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormKVStore keeps the key-value records in a single Postgres table with a
// version column used for compare-and-set updates.
type GormKVStore struct {
	db     *gorm.DB
	mapper *mapper.RecordMapper
}

var _ contract.KVStore = (*GormKVStore)(nil)

func NewGormKVStore(db *gorm.DB) *GormKVStore {
	return &GormKVStore{
		db:     db,
		mapper: mapper.NewRecordMapper(),
	}
}

func (s *GormKVStore) Get(ctx context.Context, key string) (*entity.Record, error) {
	var m model.KVEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.mapper.ToEntity(&m), nil
}

func (s *GormKVStore) Put(ctx context.Context, key string, value []byte, expectedVersion uint64) (uint64, error) {
	next := expectedVersion + 1

	if expectedVersion == 0 {
		m := s.mapper.ToModel(&entity.Record{Key: key, Value: value, Version: next})
		res := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(m)
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			return 0, contract.ErrVersionConflict
		}
		return next, nil
	}

	res := s.db.WithContext(ctx).
		Model(&model.KVEntry{}).
		Where("key = ? AND version = ?", key, expectedVersion).
		Updates(map[string]interface{}{
			"value":   value,
			"version": next,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, contract.ErrVersionConflict
	}
	return next, nil
}
