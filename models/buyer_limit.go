package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BuyerLimit 代表單一買家在某週的已確認訂單數
// 以 WhatsApp 號碼加上週起始日（週日 00:00）作為唯一鍵
type BuyerLimit struct {
	gorm.Model

	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Whatsapp             string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_buyer_limits_whatsapp_week;<-:create"`
	WeekStart            string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_buyer_limits_whatsapp_week;<-:create"`
	ConfirmedOrdersCount int       `gorm:"type:integer;not null;default:0"`
}

func (l *BuyerLimit) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
