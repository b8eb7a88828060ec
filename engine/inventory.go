package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lawha/models"
)

// Inventory 管理畫作各尺寸的庫存
// 增減一律走單一條件式 UPDATE，以 RowsAffected 判斷成敗，
// 讓資料庫層面保證不會超賣也不會超還
type Inventory struct {
	db *gorm.DB
}

func NewInventory(db *gorm.DB) *Inventory {
	return &Inventory{db: db}
}

// DecrementStock 嘗試扣掉 n 份庫存
// 回傳 false 表示剩餘量不足，沒有任何列被更動
func (inv *Inventory) DecrementStock(ctx context.Context, artworkID uuid.UUID, size string, n int) (bool, error) {
	const op = "Inventory.DecrementStock"
	if n <= 0 {
		return false, fmt.Errorf("[%s] amount must be positive, got %d", op, n)
	}
	result := inv.db.WithContext(ctx).
		Model(&models.ArtworkSize{}).
		Where("artwork_id = ? AND label = ? AND remaining >= ?", artworkID, size, n).
		UpdateColumn("remaining", gorm.Expr("remaining - ?", n))
	if result.Error != nil {
		return false, fmt.Errorf("[%s] fail to decrement stock, err=%w", op, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// IncrementStock 歸還 n 份庫存
// remaining 不會超過 total_copies，回傳 false 表示沒有可歸還的列
func (inv *Inventory) IncrementStock(ctx context.Context, artworkID uuid.UUID, size string, n int) (bool, error) {
	const op = "Inventory.IncrementStock"
	if n <= 0 {
		return false, fmt.Errorf("[%s] amount must be positive, got %d", op, n)
	}
	result := inv.db.WithContext(ctx).
		Model(&models.ArtworkSize{}).
		Where("artwork_id = ? AND label = ? AND remaining + ? <= total_copies", artworkID, size, n).
		UpdateColumn("remaining", gorm.Expr("remaining + ?", n))
	if result.Error != nil {
		return false, fmt.Errorf("[%s] fail to increment stock, err=%w", op, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Remaining 查詢某尺寸目前的剩餘量，第二個回傳值表示尺寸是否存在
func (inv *Inventory) Remaining(ctx context.Context, artworkID uuid.UUID, size string) (int, bool, error) {
	const op = "Inventory.Remaining"
	var row models.ArtworkSize
	err := inv.db.WithContext(ctx).
		Where("artwork_id = ? AND label = ?", artworkID, size).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("[%s] fail to query stock, err=%w", op, err)
	}
	return row.Remaining, true, nil
}
