package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminAudit 代表一筆後台操作稽核紀錄
// 每次管理員的寫入操作（確認、退款、出貨、結標、調整設定）都會留下一列
type AdminAudit struct {
	gorm.Model

	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	AdminEmail   string         `gorm:"type:varchar(255);not null;index;<-:create"`
	Action       string         `gorm:"type:varchar(64);not null;<-:create"`
	ResourceType string         `gorm:"type:varchar(32);not null;<-:create"`
	ResourceID   *uuid.UUID     `gorm:"type:uuid;<-:create"`
	Metadata     map[string]any `gorm:"serializer:json"`
}

func (a *AdminAudit) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
