package engine

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lawha/models"
)

const (
	// DefaultDailyCapacity 尚未設定時每日可接的製作單數
	DefaultDailyCapacity = 3
	// DefaultBuyerWeeklyMax 尚未設定時單一買家每週可確認的訂單數
	DefaultBuyerWeeklyMax = 2

	minDailyCapacity  = 1
	maxDailyCapacity  = 20
	minBuyerWeeklyMax = 1
	maxBuyerWeeklyMax = 10

	settingRowID = 1
)

// ErrSettingOutOfRange 設定值超出允許範圍
var ErrSettingOutOfRange = errors.New("setting value out of range")

// Settings 提供商店營運參數的讀寫
// 參數存於單列資料表，讀不到時回傳預設值
type Settings struct {
	db *gorm.DB
}

func NewSettings(db *gorm.DB) *Settings {
	return &Settings{db: db}
}

func (s *Settings) load(ctx context.Context) (models.StoreSetting, error) {
	setting := models.StoreSetting{
		ID:             settingRowID,
		DailyCapacity:  DefaultDailyCapacity,
		BuyerWeeklyMax: DefaultBuyerWeeklyMax,
	}
	err := s.db.WithContext(ctx).First(&setting, settingRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return setting, nil
	}
	if err != nil {
		return setting, fmt.Errorf("[Settings.load] fail to query store settings, err=%w", err)
	}
	return setting, nil
}

func (s *Settings) save(ctx context.Context, setting models.StoreSetting) error {
	setting.ID = settingRowID
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("[Settings.save] fail to upsert store settings, err=%w", err)
	}
	return nil
}

// DailyCapacity 回傳每日產能上限
func (s *Settings) DailyCapacity(ctx context.Context) (int, error) {
	setting, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return setting.DailyCapacity, nil
}

// SetDailyCapacity 設定每日產能上限，範圍 1~20
func (s *Settings) SetDailyCapacity(ctx context.Context, n int) error {
	if n < minDailyCapacity || n > maxDailyCapacity {
		return fmt.Errorf("daily capacity %d not in [%d, %d]: %w", n, minDailyCapacity, maxDailyCapacity, ErrSettingOutOfRange)
	}
	setting, err := s.load(ctx)
	if err != nil {
		return err
	}
	setting.DailyCapacity = n
	return s.save(ctx, setting)
}

// BuyerWeeklyMax 回傳單一買家每週可確認的訂單數上限
func (s *Settings) BuyerWeeklyMax(ctx context.Context) (int, error) {
	setting, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return setting.BuyerWeeklyMax, nil
}

// SetBuyerWeeklyMax 設定買家每週上限，範圍 1~10
func (s *Settings) SetBuyerWeeklyMax(ctx context.Context, n int) error {
	if n < minBuyerWeeklyMax || n > maxBuyerWeeklyMax {
		return fmt.Errorf("buyer weekly max %d not in [%d, %d]: %w", n, minBuyerWeeklyMax, maxBuyerWeeklyMax, ErrSettingOutOfRange)
	}
	setting, err := s.load(ctx)
	if err != nil {
		return err
	}
	setting.BuyerWeeklyMax = n
	return s.save(ctx, setting)
}
