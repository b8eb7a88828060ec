package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArtworkType 畫作的販售方式
// unique 是獨一無二的原作，limited 是限量複製版次
type ArtworkType string

const (
	ArtworkUnique  ArtworkType = "unique"
	ArtworkLimited ArtworkType = "limited"
	ArtworkAuction ArtworkType = "auction"
)

// ArtworkStatus 畫作目前的上架狀態
type ArtworkStatus string

const (
	ArtworkAvailable     ArtworkStatus = "available"
	ArtworkComingSoon    ArtworkStatus = "coming_soon"
	ArtworkSold          ArtworkStatus = "sold"
	ArtworkAuctionClosed ArtworkStatus = "auction_closed"
)

// Artwork 代表商店中的一幅畫作
// 包含展示文案、販售方式、拍賣狀態與成本結構等資訊
type Artwork struct {
	gorm.Model

	ID               uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Slug             string        `gorm:"type:varchar(255);not null;uniqueIndex"`
	Title            string        `gorm:"type:varchar(255);not null"`
	TitleAr          string        `gorm:"type:varchar(255)"`
	ShortDescription string        `gorm:"type:text"`
	Story            string        `gorm:"type:text"`
	Images           []string      `gorm:"serializer:json"`
	Type             ArtworkType   `gorm:"type:varchar(16);not null;default:unique"`
	Status           ArtworkStatus `gorm:"type:varchar(16);not null;default:available"`

	// 拍賣相關欄位，僅 Type 為 auction 時有意義
	AuctionStart      *time.Time
	AuctionEnd        *time.Time
	CurrentBidCents   int64      `gorm:"type:bigint;not null;default:0"`
	MinIncrementCents int64      `gorm:"type:bigint;not null;default:0"`

	// 成本結構，單位為 cents，用於利潤門檻檢查
	MaterialCostCents    int64 `gorm:"type:bigint;not null;default:0"`
	PackagingCostCents   int64 `gorm:"type:bigint;not null;default:0"`
	LaborCostCents       int64 `gorm:"type:bigint;not null;default:0"`
	MinProfitMarginCents int64 `gorm:"type:bigint;not null;default:0"`

	// 外鍵關聯
	Sizes      []ArtworkSize `gorm:"foreignKey:ArtworkID"`
	BidRecords []Bid         `gorm:"foreignKey:ArtworkID"`
}

func (a *Artwork) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TotalCostCents 回傳畫作的總成本
func (a *Artwork) TotalCostCents() int64 {
	return a.MaterialCostCents + a.PackagingCostCents + a.LaborCostCents
}
