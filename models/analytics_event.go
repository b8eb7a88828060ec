package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnalyticsEventType 前台行為事件的種類
type AnalyticsEventType string

const (
	EventPageView      AnalyticsEventType = "page_view"
	EventWhatsappClick AnalyticsEventType = "whatsapp_click"
	EventOrderCreated  AnalyticsEventType = "order_created"
	EventBidPlaced     AnalyticsEventType = "bid_placed"
	EventHoverStory    AnalyticsEventType = "hover_story"
)

// AnalyticsEvent 代表一筆前台行為事件
type AnalyticsEvent struct {
	gorm.Model

	ID        uuid.UUID          `gorm:"type:uuid;primaryKey"`
	EventType AnalyticsEventType `gorm:"type:varchar(32);not null;index;<-:create"`
	ArtworkID *uuid.UUID         `gorm:"type:uuid;index;<-:create"`
	Metadata  map[string]any     `gorm:"serializer:json"`
}

func (e *AnalyticsEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
