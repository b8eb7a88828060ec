package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArtworkSize 代表畫作的單一尺寸庫存列
// remaining 只能透過條件式 UPDATE 增減，確保併發下不會超賣
type ArtworkSize struct {
	gorm.Model

	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ArtworkID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_artwork_sizes_artwork_label;<-:create"`
	Label       string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_artwork_sizes_artwork_label;<-:create"`
	PriceCents  int64     `gorm:"type:bigint;not null"`
	TotalCopies int       `gorm:"type:integer;not null"`
	Remaining   int       `gorm:"type:integer;not null"`
}

func (s *ArtworkSize) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
