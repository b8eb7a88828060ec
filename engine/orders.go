package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lawha/models"
)

const (
	// DefaultHoldTTL pending 訂單持有庫存保留的時間
	DefaultHoldTTL = 24 * time.Hour
	// productionLeadDays 排入製作後預計的完成天數
	productionLeadDays = 5
	// schedulingHorizonDays 向後尋找產能空位的天數上限
	schedulingHorizonDays = 30
)

// Lifecycle 負責訂單從建立到出貨或退款的完整流程
type Lifecycle struct {
	db        *gorm.DB
	inventory *Inventory
	limiter   *Limiter
	scheduler *Scheduler
	settings  *Settings
	holdTTL   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

type LifecycleOption func(*Lifecycle)

// WithHoldTTL 覆寫保留時間
func WithHoldTTL(ttl time.Duration) LifecycleOption {
	return func(lc *Lifecycle) {
		lc.holdTTL = ttl
	}
}

// WithLifecycleClock 覆寫時間來源，測試用
func WithLifecycleClock(now func() time.Time) LifecycleOption {
	return func(lc *Lifecycle) {
		lc.now = now
	}
}

func NewLifecycle(db *gorm.DB, inventory *Inventory, limiter *Limiter, scheduler *Scheduler, settings *Settings, opts ...LifecycleOption) *Lifecycle {
	lc := &Lifecycle{
		db:        db,
		inventory: inventory,
		limiter:   limiter,
		scheduler: scheduler,
		settings:  settings,
		holdTTL:   DefaultHoldTTL,
		now:       time.Now,
		logger:    slog.Default().With(slog.String("caller", "engine-lifecycle")),
	}
	for _, opt := range opts {
		opt(lc)
	}
	return lc
}

// CreateOrderInput 建立訂單所需的欄位
// PriceCents 為 0 時以該尺寸目前的定價成交
type CreateOrderInput struct {
	ArtworkID  uuid.UUID
	Size       string
	BuyerName  string
	Whatsapp   string
	PriceCents int64
}

// checkMargin 確認成交價扣除成本後仍達到最低利潤
func checkMargin(artwork *models.Artwork, priceCents int64) error {
	profit := priceCents - artwork.TotalCostCents()
	if profit < artwork.MinProfitMarginCents {
		return NewError(CodeInsufficientMargin, "price does not cover the minimum profit margin", map[string]any{
			"expected_profit_cents":   profit,
			"min_profit_margin_cents": artwork.MinProfitMarginCents,
		})
	}
	return nil
}

// CreateOrder 建立 pending 訂單並保留一份庫存
// 庫存扣減之後的任何失敗都會觸發補償，把保留的那份還回去
func (lc *Lifecycle) CreateOrder(ctx context.Context, in CreateOrderInput) (order *models.Order, err error) {
	const op = "Lifecycle.CreateOrder"

	var artwork models.Artwork
	if err = lc.db.WithContext(ctx).First(&artwork, "id = ?", in.ArtworkID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(CodeStockUnavailable, "artwork not found", nil)
		}
		return nil, fmt.Errorf("[%s] fail to query artwork, err=%w", op, err)
	}

	var size models.ArtworkSize
	err = lc.db.WithContext(ctx).
		Where("artwork_id = ? AND label = ?", in.ArtworkID, in.Size).
		First(&size).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(CodeStockUnavailable, "unknown size for artwork", map[string]any{
				"size": in.Size,
			})
		}
		return nil, fmt.Errorf("[%s] fail to query size, err=%w", op, err)
	}
	// 庫存先於利潤與額度檢查，售罄的尺寸直接拒絕
	if size.Remaining <= 0 {
		return nil, NewError(CodeStockUnavailable, "no remaining copies for this size", map[string]any{
			"size": in.Size,
		})
	}

	price := in.PriceCents
	if price <= 0 {
		price = size.PriceCents
	}
	if err = checkMargin(&artwork, price); err != nil {
		return nil, err
	}

	if in.Whatsapp != "" {
		var max int
		if max, err = lc.settings.BuyerWeeklyMax(ctx); err != nil {
			return nil, err
		}
		var allowed bool
		if allowed, err = lc.limiter.Allow(ctx, in.Whatsapp, max); err != nil {
			return nil, err
		}
		if !allowed {
			return nil, NewError(CodeBuyerLimitExceeded, "weekly confirmed-order limit reached", map[string]any{
				"max_per_week": max,
			})
		}
	}

	decremented, err := lc.inventory.DecrementStock(ctx, in.ArtworkID, in.Size, 1)
	if err != nil {
		return nil, err
	}
	if !decremented {
		return nil, NewError(CodeStockUnavailable, "no remaining copies for this size", map[string]any{
			"size": in.Size,
		})
	}
	// 庫存已扣，往後只要失敗就必須歸還
	defer func() {
		if err == nil {
			return
		}
		if ok, rerr := lc.inventory.IncrementStock(ctx, in.ArtworkID, in.Size, 1); rerr != nil || !ok {
			lc.logger.Error("fail to restore stock after order creation failure",
				slog.String("op", op),
				slog.String("artworkID", in.ArtworkID.String()),
				slog.String("size", in.Size),
				slog.Any("error", rerr))
		}
	}()

	holdUntil := lc.now().Add(lc.holdTTL)
	order = &models.Order{
		ArtworkID:     in.ArtworkID,
		SizeLabel:     in.Size,
		BuyerName:     in.BuyerName,
		Whatsapp:      in.Whatsapp,
		PriceCents:    price,
		Status:        models.OrderPending,
		HoldExpiresAt: &holdUntil,
	}
	if cerr := lc.db.WithContext(ctx).Create(order).Error; cerr != nil {
		err = fmt.Errorf("[%s] fail to create order, err=%w", op, cerr)
		return nil, err
	}
	return order, nil
}

// ConfirmOrder 把 pending 訂單轉為 confirmed 或 scheduled
// 重新驗證利潤與買家額度，預約產能並計算預計完成日與隊列位置
func (lc *Lifecycle) ConfirmOrder(ctx context.Context, orderID uuid.UUID) (result *models.Order, err error) {
	const op = "Lifecycle.ConfirmOrder"

	var order models.Order
	if err = lc.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(CodeInvalidTransition, "order not found", nil)
		}
		return nil, fmt.Errorf("[%s] fail to query order, err=%w", op, err)
	}
	if order.Status != models.OrderPending {
		return nil, NewError(CodeInvalidTransition, "only pending orders can be confirmed", map[string]any{
			"from": order.Status,
			"to":   models.OrderConfirmed,
		})
	}

	var artwork models.Artwork
	if err = lc.db.WithContext(ctx).First(&artwork, "id = ?", order.ArtworkID).Error; err != nil {
		return nil, fmt.Errorf("[%s] fail to query artwork, err=%w", op, err)
	}
	// 成本可能在下單後被調整過，確認前重新驗證利潤
	if err = checkMargin(&artwork, order.PriceCents); err != nil {
		return nil, err
	}

	var weeklyMax int
	if order.Whatsapp != "" {
		if weeklyMax, err = lc.settings.BuyerWeeklyMax(ctx); err != nil {
			return nil, err
		}
		var allowed bool
		if allowed, err = lc.limiter.Allow(ctx, order.Whatsapp, weeklyMax); err != nil {
			return nil, err
		}
		if !allowed {
			return nil, NewError(CodeBuyerLimitExceeded, "weekly confirmed-order limit reached", map[string]any{
				"max_per_week": weeklyMax,
			})
		}
	}

	// 今天還有產能就直接確認，否則往後掃描排程
	startDate := lc.scheduler.Today()
	nextStatus := models.OrderConfirmed
	available, err := lc.scheduler.AvailableCapacity(ctx, startDate)
	if err != nil {
		return nil, err
	}
	if available == 0 {
		date, _, found, serr := lc.scheduler.NextAvailableSlot(ctx, schedulingHorizonDays)
		if serr != nil {
			return nil, serr
		}
		if !found {
			return nil, NewError(CodeNoCapacityHorizon, "no production capacity in scheduling horizon", map[string]any{
				"horizon_days": schedulingHorizonDays,
			})
		}
		startDate = date
		nextStatus = models.OrderScheduled
	}

	position, err := lc.scheduler.ReserveCapacity(ctx, startDate)
	if err != nil {
		return nil, err
	}
	// 產能已佔位，往後失敗必須釋放
	defer func() {
		if err == nil {
			return
		}
		if rerr := lc.scheduler.ReleaseCapacity(ctx, startDate); rerr != nil {
			lc.logger.Error("fail to release capacity after confirmation failure",
				slog.String("op", op),
				slog.String("orderID", orderID.String()),
				slog.Any("error", rerr))
		}
	}()

	eta := startDate.AddDate(0, 0, productionLeadDays)
	err = lc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderPending).
			Updates(map[string]any{
				"status":                    nextStatus,
				"scheduled_start_date":      startDate,
				"estimated_completion_date": eta,
				"queue_position":            position,
			})
		if updated.Error != nil {
			return fmt.Errorf("[%s] fail to update order, err=%w", op, updated.Error)
		}
		if updated.RowsAffected == 0 {
			// 另一個確認流程搶先了
			return NewError(CodeInvalidTransition, "order is no longer pending", map[string]any{
				"to": nextStatus,
			})
		}
		// 確認成功才累加買家本週計數
		if order.Whatsapp != "" {
			if ierr := lc.limiter.IncrementTx(tx, order.Whatsapp); ierr != nil {
				return ierr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = nextStatus
	order.ScheduledStartDate = &startDate
	order.EstimatedCompletionDate = &eta
	order.QueuePosition = &position
	return &order, nil
}

// MarkShipped 把已確認或已排程的訂單標記為出貨
func (lc *Lifecycle) MarkShipped(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	const op = "Lifecycle.MarkShipped"
	return lc.transition(ctx, op, orderID, models.OrderShipped)
}

// RefundOrder 管理員主動退款，任何非終態訂單都可以退
// 若訂單還在 pending，保留的庫存會一併歸還
func (lc *Lifecycle) RefundOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	const op = "Lifecycle.RefundOrder"

	var order models.Order
	if err := lc.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(CodeInvalidTransition, "order not found", nil)
		}
		return nil, fmt.Errorf("[%s] fail to query order, err=%w", op, err)
	}
	wasPending := order.Status == models.OrderPending

	updated, err := lc.transition(ctx, op, orderID, models.OrderRefunded)
	if err != nil {
		return nil, err
	}
	if wasPending {
		if ok, rerr := lc.inventory.IncrementStock(ctx, order.ArtworkID, order.SizeLabel, 1); rerr != nil || !ok {
			lc.logger.Error("fail to restore stock for refunded pending order",
				slog.String("op", op),
				slog.String("orderID", orderID.String()),
				slog.Any("error", rerr))
		}
	}
	return updated, nil
}

// transition 以條件式 UPDATE 執行狀態轉移，轉移表之外的來源狀態會被拒絕
func (lc *Lifecycle) transition(ctx context.Context, op string, orderID uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	var order models.Order
	if err := lc.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(CodeInvalidTransition, "order not found", nil)
		}
		return nil, fmt.Errorf("[%s] fail to query order, err=%w", op, err)
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, NewError(CodeInvalidTransition, "transition not allowed", map[string]any{
			"from": order.Status,
			"to":   next,
		})
	}
	result := lc.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, order.Status).
		UpdateColumn("status", next)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] fail to update order status, err=%w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, NewError(CodeInvalidTransition, "order status changed concurrently", map[string]any{
			"to": next,
		})
	}
	order.Status = next
	return &order, nil
}
