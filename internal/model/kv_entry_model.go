package model

import "time"

type KVEntry struct {
	Key       string    `gorm:"column:key;type:varchar(64);primaryKey"`
	Value     []byte    `gorm:"type:bytea;not null"`
	Version   uint64    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
