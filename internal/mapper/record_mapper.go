package mapper

import (
	"voicetask/internal/entity"
	"voicetask/internal/model"
)

type RecordMapper struct{}

func NewRecordMapper() *RecordMapper {
	return &RecordMapper{}
}

func (m *RecordMapper) ToEntity(e *model.KVEntry) *entity.Record {
	if e == nil {
		return nil
	}
	return &entity.Record{
		Key:     e.Key,
		Value:   e.Value,
		Version: e.Version,
	}
}

func (m *RecordMapper) ToModel(r *entity.Record) *model.KVEntry {
	if r == nil {
		return nil
	}
	return &model.KVEntry{
		Key:     r.Key,
		Value:   r.Value,
		Version: r.Version,
	}
}
