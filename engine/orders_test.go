package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lawha/models"
)

type lifecycleEnv struct {
	db        *gorm.DB
	inventory *Inventory
	limiter   *Limiter
	scheduler *Scheduler
	settings  *Settings
	lifecycle *Lifecycle
	now       time.Time
}

func setupLifecycle(t *testing.T) *lifecycleEnv {
	db := setupDB(t)
	loc := cairo(t)
	now := time.Date(2026, 1, 7, 12, 0, 0, 0, loc)
	settings := NewSettings(db)
	inventory := NewInventory(db)
	limiter := NewLimiter(db, loc, WithLimiterClock(fixedClock(now)))
	scheduler := NewScheduler(db, settings, loc, WithSchedulerClock(fixedClock(now)))
	lifecycle := NewLifecycle(db, inventory, limiter, scheduler, settings,
		WithLifecycleClock(fixedClock(now)))
	return &lifecycleEnv{
		db:        db,
		inventory: inventory,
		limiter:   limiter,
		scheduler: scheduler,
		settings:  settings,
		lifecycle: lifecycle,
		now:       now,
	}
}

// seedOrderable 建立一幅可下單的畫作，售價五十萬、成本三十萬、最低利潤十萬
func seedOrderable(t *testing.T, db *gorm.DB, slug string, remaining int) models.Artwork {
	return seedArtwork(t, db,
		models.Artwork{
			Slug: slug, Title: slug, Type: models.ArtworkLimited,
			MaterialCostCents:    150000,
			PackagingCostCents:   50000,
			LaborCostCents:       100000,
			MinProfitMarginCents: 100000,
		},
		models.ArtworkSize{Label: "A3", PriceCents: 500000, TotalCopies: 5, Remaining: remaining},
	)
}

func TestLifecycle_CreateOrder(t *testing.T) {
	// 準備測試環境
	env := setupLifecycle(t)
	artwork := seedOrderable(t, env.db, "dunes", 2)
	ctx := context.Background()

	// 執行測試
	order, err := env.lifecycle.CreateOrder(ctx, CreateOrderInput{
		ArtworkID: artwork.ID,
		Size:      "A3",
		BuyerName: "Mona",
		Whatsapp:  "+201001234567",
	})

	// 驗證結果：pending 訂單、24 小時保留、庫存已扣
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, int64(500000), order.PriceCents)
	require.NotNil(t, order.HoldExpiresAt)
	assert.WithinDuration(t, env.now.Add(24*time.Hour), *order.HoldExpiresAt, time.Second)

	left, _, err := env.inventory.Remaining(ctx, artwork.ID, "A3")
	require.NoError(t, err)
	assert.Equal(t, 1, left)
}

func TestLifecycle_CreateOrder_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(t *testing.T, env *lifecycleEnv) CreateOrderInput
		wantCode ErrorCode
	}{
		{
			name: "stock_exhausted",
			prepare: func(t *testing.T, env *lifecycleEnv) CreateOrderInput {
				artwork := seedOrderable(t, env.db, "dunes", 0)
				return CreateOrderInput{ArtworkID: artwork.ID, Size: "A3", BuyerName: "Mona"}
			},
			wantCode: CodeStockUnavailable,
		},
		{
			// 售罄且出價不足時以售罄為準
			name: "sold_out_checked_before_margin",
			prepare: func(t *testing.T, env *lifecycleEnv) CreateOrderInput {
				artwork := seedOrderable(t, env.db, "dunes", 0)
				return CreateOrderInput{ArtworkID: artwork.ID, Size: "A3", BuyerName: "Mona", PriceCents: 390000}
			},
			wantCode: CodeStockUnavailable,
		},
		{
			name: "unknown_size",
			prepare: func(t *testing.T, env *lifecycleEnv) CreateOrderInput {
				artwork := seedOrderable(t, env.db, "dunes", 2)
				return CreateOrderInput{ArtworkID: artwork.ID, Size: "A0", BuyerName: "Mona"}
			},
			wantCode: CodeStockUnavailable,
		},
		{
			name: "price_below_margin",
			prepare: func(t *testing.T, env *lifecycleEnv) CreateOrderInput {
				artwork := seedOrderable(t, env.db, "dunes", 2)
				// 成本三十萬加最低利潤十萬，39 萬的出價不足
				return CreateOrderInput{ArtworkID: artwork.ID, Size: "A3", BuyerName: "Mona", PriceCents: 390000}
			},
			wantCode: CodeInsufficientMargin,
		},
		{
			name: "buyer_over_weekly_limit",
			prepare: func(t *testing.T, env *lifecycleEnv) CreateOrderInput {
				artwork := seedOrderable(t, env.db, "dunes", 2)
				require.NoError(t, env.limiter.Increment(context.Background(), "+201001234567"))
				require.NoError(t, env.limiter.Increment(context.Background(), "+201001234567"))
				return CreateOrderInput{ArtworkID: artwork.ID, Size: "A3", BuyerName: "Mona", Whatsapp: "+201001234567"}
			},
			wantCode: CodeBuyerLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 準備測試環境
			env := setupLifecycle(t)
			input := tt.prepare(t, env)

			// 執行測試
			_, err := env.lifecycle.CreateOrder(context.Background(), input)

			// 驗證結果：被拒絕且庫存沒有變動
			code, ok := CodeOf(err)
			require.True(t, ok, "expected a business error, got %v", err)
			assert.Equal(t, tt.wantCode, code)

			var size models.ArtworkSize
			if qerr := env.db.Where("artwork_id = ? AND label = ?", input.ArtworkID, "A3").First(&size).Error; qerr == nil {
				var count int64
				require.NoError(t, env.db.Model(&models.Order{}).Count(&count).Error)
				assert.Zero(t, count)
			}
		})
	}
}

func TestLifecycle_CreateOrder_CompensatesOnFailure(t *testing.T) {
	// 準備測試環境：扣庫存後讓訂單寫入必定失敗
	env := setupLifecycle(t)
	artwork := seedOrderable(t, env.db, "dunes", 2)
	require.NoError(t, env.db.Migrator().DropTable(&models.Order{}))

	// 執行測試
	_, err := env.lifecycle.CreateOrder(context.Background(), CreateOrderInput{
		ArtworkID: artwork.ID, Size: "A3", BuyerName: "Mona",
	})

	// 驗證結果：失敗後庫存被補償回原值
	require.Error(t, err)
	left, _, rerr := env.inventory.Remaining(context.Background(), artwork.ID, "A3")
	require.NoError(t, rerr)
	assert.Equal(t, 2, left)
}

func TestLifecycle_ConfirmOrder(t *testing.T) {
	// 準備測試環境
	env := setupLifecycle(t)
	artwork := seedOrderable(t, env.db, "dunes", 3)
	ctx := context.Background()
	order, err := env.lifecycle.CreateOrder(ctx, CreateOrderInput{
		ArtworkID: artwork.ID, Size: "A3", BuyerName: "Mona", Whatsapp: "+201001234567",
	})
	require.NoError(t, err)

	// 執行測試
	confirmed, err := env.lifecycle.ConfirmOrder(ctx, order.ID)

	// 驗證結果：今天還有產能，直接確認並排入今日
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ScheduledStartDate)
	assert.Equal(t, "2026-01-07", confirmed.ScheduledStartDate.Format("2006-01-02"))
	require.NotNil(t, confirmed.EstimatedCompletionDate)
	assert.Equal(t, "2026-01-12", confirmed.EstimatedCompletionDate.Format("2006-01-02"))
	require.NotNil(t, confirmed.QueuePosition)
	assert.Equal(t, 1, *confirmed.QueuePosition)

	// 買家本週計數在確認時才遞增
	count, err := env.limiter.ConfirmedThisWeek(ctx, "+201001234567")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// 重複確認會被拒絕
	_, err = env.lifecycle.ConfirmOrder(ctx, order.ID)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidTransition, code)
}

func TestLifecycle_ConfirmOrder_SchedulesWhenTodayIsFull(t *testing.T) {
	// 準備測試環境：每日只接一單，今天已被占用
	env := setupLifecycle(t)
	ctx := context.Background()
	require.NoError(t, env.settings.SetDailyCapacity(ctx, 1))
	artwork := seedOrderable(t, env.db, "dunes", 3)

	first, err := env.lifecycle.CreateOrder(ctx, CreateOrderInput{
		ArtworkID: artwork.ID, Size: "A3", BuyerName: "Mona",
	})
	require.NoError(t, err)
	_, err = env.lifecycle.ConfirmOrder(ctx, first.ID)
	require.NoError(t, err)

	second, err := env.lifecycle.CreateOrder(ctx, CreateOrderInput{
		ArtworkID: artwork.ID, Size: "A3", BuyerName: "Omar",
	})
	require.NoError(t, err)

	// 執行測試
	scheduled, err := env.lifecycle.ConfirmOrder(ctx, second.ID)

	// 驗證結果：排入隔天並標記為 scheduled
	require.NoError(t, err)
	assert.Equal(t, models.OrderScheduled, scheduled.Status)
	require.NotNil(t, scheduled.ScheduledStartDate)
	assert.Equal(t, "2026-01-08", scheduled.ScheduledStartDate.Format("2006-01-02"))
	assert.Equal(t, "2026-01-13", scheduled.EstimatedCompletionDate.Format("2006-01-02"))
	assert.Equal(t, 1, *scheduled.QueuePosition)
}

func TestLifecycle_ConfirmOrder_NoCapacityHorizon(t *testing.T) {
	// 準備測試環境：三十天內全部額滿
	env := setupLifecycle(t)
	ctx := context.Background()
	require.NoError(t, env.settings.SetDailyCapacity(ctx, 1))
	today := env.scheduler.Today()
	for i := 0; i < 30; i++ {
		require.NoError(t, env.db.Create(&models.ProductionSlot{
			Day:              today.AddDate(0, 0, i).Format("2006-01-02"),
			CapacityTotal:    1,
			CapacityReserved: 1,
		}).Error)
	}
	artwork := seedOrderable(t, env.db, "dunes", 3)
	order, err := env.lifecycle.CreateOrder(ctx, CreateOrderInput{
		ArtworkID: artwork.ID, Size: "A3", BuyerName: "Mona",
	})
	require.NoError(t, err)

	// 執行測試
	_, err = env.lifecycle.ConfirmOrder(ctx, order.ID)

	// 驗證結果：訂單維持 pending
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, CodeNoCapacityHorizon, code)

	var reloaded models.Order
	require.NoError(t, env.db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderPending, reloaded.Status)
}

func TestLifecycle_ConfirmOrder_BuyerLimit(t *testing.T) {
	// 準備測試環境:同一買家建立三筆 pending
	env := setupLifecycle(t)
	ctx := context.Background()
	artwork := seedOrderable(t, env.db, "dunes", 5)
	const buyer = "+201001234567"

	var orders []*models.Order
	for i := 0; i < 3; i++ {
		order, err := env.lifecycle.CreateOrder(ctx, CreateOrderInput{
			ArtworkID: artwork.ID, Size: "A3", BuyerName: "Mona", Whatsapp: buyer,
		})
		require.NoError(t, err)
		orders = append(orders, order)
	}

	// 執行測試：前兩筆確認成功，第三筆超出週額度
	_, err := env.lifecycle.ConfirmOrder(ctx, orders[0].ID)
	require.NoError(t, err)
	_, err = env.lifecycle.ConfirmOrder(ctx, orders[1].ID)
	require.NoError(t, err)
	_, err = env.lifecycle.ConfirmOrder(ctx, orders[2].ID)

	// 驗證結果
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, CodeBuyerLimitExceeded, code)

	count, err := env.limiter.ConfirmedThisWeek(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLifecycle_MarkShipped(t *testing.T) {
	// 準備測試環境
	env := setupLifecycle(t)
	ctx := context.Background()
	artwork := seedOrderable(t, env.db, "dunes", 3)
	order, err := env.lifecycle.CreateOrder(ctx, CreateOrderInput{
		ArtworkID: artwork.ID, Size: "A3", BuyerName: "Mona",
	})
	require.NoError(t, err)

	// 執行測試：pending 不能直接出貨
	_, err = env.lifecycle.MarkShipped(ctx, order.ID)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidTransition, code)

	// 確認後出貨成功
	_, err = env.lifecycle.ConfirmOrder(ctx, order.ID)
	require.NoError(t, err)
	shipped, err := env.lifecycle.MarkShipped(ctx, order.ID)

	// 驗證結果
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, shipped.Status)

	// 出貨後是終態，不能再退款
	_, err = env.lifecycle.RefundOrder(ctx, order.ID)
	code, ok = CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidTransition, code)
}

func TestLifecycle_RefundOrder_RestoresPendingHold(t *testing.T) {
	// 準備測試環境
	env := setupLifecycle(t)
	ctx := context.Background()
	artwork := seedOrderable(t, env.db, "dunes", 2)
	order, err := env.lifecycle.CreateOrder(ctx, CreateOrderInput{
		ArtworkID: artwork.ID, Size: "A3", BuyerName: "Mona",
	})
	require.NoError(t, err)

	// 執行測試
	refunded, err := env.lifecycle.RefundOrder(ctx, order.ID)

	// 驗證結果：退掉 pending 訂單會歸還保留的庫存
	require.NoError(t, err)
	assert.Equal(t, models.OrderRefunded, refunded.Status)
	left, _, err := env.inventory.Remaining(ctx, artwork.ID, "A3")
	require.NoError(t, err)
	assert.Equal(t, 2, left)
}
