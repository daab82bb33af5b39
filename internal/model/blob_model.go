package model

import "time"

// Blob is the gorm model backing the Postgres blob store: one row per key,
// value stored as opaque bytes.
type Blob struct {
	Key       string `gorm:"primaryKey;size:512"`
	Value     []byte `gorm:"type:bytea"`
	UpdatedAt time.Time
}

func (Blob) TableName() string {
	return "blobs"
}
