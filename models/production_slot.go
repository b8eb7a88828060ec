package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductionSlot 代表單日的製作產能
// 列是惰性建立的：第一筆預約該日的訂單才會寫入
type ProductionSlot struct {
	gorm.Model

	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Day              string    `gorm:"type:varchar(10);not null;uniqueIndex;<-:create"`
	CapacityTotal    int       `gorm:"type:integer;not null"`
	CapacityReserved int       `gorm:"type:integer;not null;default:0"`
}

func (s *ProductionSlot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
