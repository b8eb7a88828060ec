package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image 代表後台上傳的畫作圖片
// 包含基本的圖片資訊，如圖片 URL 以及上傳者的管理員信箱
type Image struct {
	gorm.Model

	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	UploaderEmail string    `gorm:"type:varchar(255);not null;<-:create"`
	Url           string    `gorm:"type:text;not null;<-:create"`
}

func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
