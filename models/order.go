package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus 訂單的生命週期狀態
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderScheduled OrderStatus = "scheduled"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
	OrderShipped   OrderStatus = "shipped"
)

// orderTransitions 列出每個狀態允許的下一個狀態
// 不在表內的狀態即為終態
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderScheduled, OrderCancelled, OrderRefunded},
	OrderConfirmed: {OrderShipped, OrderRefunded},
	OrderScheduled: {OrderShipped, OrderRefunded},
}

// CanTransitionTo 檢查狀態轉移是否合法
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal 檢查狀態是否為終態
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// Order 代表買家對某一尺寸畫作的訂單
// pending 狀態持有一份庫存保留，到期未確認即由回收器釋放
type Order struct {
	gorm.Model

	ID         uuid.UUID   `gorm:"type:uuid;primaryKey"`
	ArtworkID  uuid.UUID   `gorm:"type:uuid;not null;index;<-:create"`
	SizeLabel  string      `gorm:"type:varchar(32);not null;<-:create"`
	BuyerName  string      `gorm:"type:varchar(255);not null;<-:create"`
	Whatsapp   string      `gorm:"type:varchar(32);index;<-:create"`
	PriceCents int64       `gorm:"type:bigint;not null;<-:create"`
	Status     OrderStatus `gorm:"type:varchar(16);not null;default:pending;index"`

	HoldExpiresAt           *time.Time `gorm:"index"`
	ScheduledStartDate      *time.Time
	EstimatedCompletionDate *time.Time
	QueuePosition           *int       `gorm:"type:integer"`

	// 外鍵關聯
	Artwork Artwork
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
