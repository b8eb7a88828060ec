package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"lawha/models"
)

// Reconciler 回收到期未確認的庫存保留
// 取消走 pending 限定的條件式 UPDATE，重複執行或併發執行都不會重複歸還
type Reconciler struct {
	db        *gorm.DB
	inventory *Inventory
	now       func() time.Time
	logger    *slog.Logger
}

type ReconcilerOption func(*Reconciler)

// WithReconcilerClock 覆寫時間來源，測試用
func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		r.now = now
	}
}

func NewReconciler(db *gorm.DB, inventory *Inventory, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		db:        db,
		inventory: inventory,
		now:       time.Now,
		logger:    slog.Default().With(slog.String("caller", "engine-reconciler")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RestoreExpiredHolds 掃描到期的 pending 訂單，逐筆取消並歸還庫存
// 回傳本次實際回收的筆數
func (r *Reconciler) RestoreExpiredHolds(ctx context.Context) (int, error) {
	const op = "Reconciler.RestoreExpiredHolds"

	var expired []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND hold_expires_at <= ?", models.OrderPending, r.now()).
		Find(&expired).Error
	if err != nil {
		return 0, fmt.Errorf("[%s] fail to query expired holds, err=%w", op, err)
	}

	restored := 0
	for _, order := range expired {
		result := r.db.WithContext(ctx).
			Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderPending).
			UpdateColumn("status", models.OrderCancelled)
		if result.Error != nil {
			r.logger.Error("fail to cancel expired order",
				slog.String("op", op),
				slog.String("orderID", order.ID.String()),
				slog.Any("error", result.Error))
			continue
		}
		if result.RowsAffected == 0 {
			// 已被其他流程處理，跳過
			continue
		}
		ok, ierr := r.inventory.IncrementStock(ctx, order.ArtworkID, order.SizeLabel, 1)
		if ierr != nil || !ok {
			// 找不到對應尺寸或歸還會超過總份數時一樣視為失敗
			r.logger.Error("fail to restore stock for expired order",
				slog.String("op", op),
				slog.String("orderID", order.ID.String()),
				slog.Any("error", ierr))
			continue
		}
		restored++
	}
	return restored, nil
}
