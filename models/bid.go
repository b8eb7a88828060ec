package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bid 代表拍賣畫作的出價紀錄
// 記錄每次競標的金額與出價者聯絡方式
type Bid struct {
	gorm.Model

	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ArtworkID   uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	BidderName  string    `gorm:"type:varchar(255);not null;<-:create"`
	Whatsapp    string    `gorm:"type:varchar(32);<-:create"`
	AmountCents int64     `gorm:"type:bigint;not null;<-:create"`
	IsWinner    bool      `gorm:"not null;default:false"`

	// 外鍵關聯
	Artwork Artwork
}

func (b *Bid) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
