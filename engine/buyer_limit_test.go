package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekStartFor(t *testing.T) {
	loc, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{
			name: "midweek",
			at:   time.Date(2026, 1, 7, 15, 30, 0, 0, loc), // 週三
			want: "2026-01-04",
		},
		{
			name: "sunday_is_its_own_week_start",
			at:   time.Date(2026, 1, 4, 0, 0, 0, 0, loc),
			want: "2026-01-04",
		},
		{
			name: "saturday_belongs_to_previous_sunday",
			at:   time.Date(2026, 1, 10, 23, 59, 0, 0, loc),
			want: "2026-01-04",
		},
		{
			name: "crosses_month_boundary",
			at:   time.Date(2026, 3, 3, 9, 0, 0, 0, loc),
			want: "2026-03-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeekStartFor(tt.at, loc)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
			assert.Equal(t, time.Sunday, got.Weekday())
			assert.Equal(t, 0, got.Hour())
		})
	}
}

func TestLimiter_AllowAndIncrement(t *testing.T) {
	// 準備測試環境
	db := setupDB(t)
	loc := cairo(t)
	now := time.Date(2026, 1, 7, 12, 0, 0, 0, loc)
	limiter := NewLimiter(db, loc, WithLimiterClock(fixedClock(now)))
	ctx := context.Background()
	const buyer = "+201001234567"

	// 執行測試：尚無紀錄時放行
	allowed, err := limiter.Allow(ctx, buyer, 2)
	require.NoError(t, err)
	assert.True(t, allowed)

	// 兩次確認後額度用盡
	require.NoError(t, limiter.Increment(ctx, buyer))
	require.NoError(t, limiter.Increment(ctx, buyer))

	// 驗證結果
	count, err := limiter.ConfirmedThisWeek(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	allowed, err = limiter.Allow(ctx, buyer, 2)
	require.NoError(t, err)
	assert.False(t, allowed)

	// 其他買家不受影響
	allowed, err = limiter.Allow(ctx, "+201009999999", 2)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiter_EmptyContactAlwaysAllowed(t *testing.T) {
	// 準備測試環境
	db := setupDB(t)
	limiter := NewLimiter(db, cairo(t))

	// 執行測試
	allowed, err := limiter.Allow(context.Background(), "", 1)

	// 驗證結果
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.NoError(t, limiter.Increment(context.Background(), ""))
}

func TestLimiter_NewWeekResetsQuota(t *testing.T) {
	// 準備測試環境
	db := setupDB(t)
	loc := cairo(t)
	ctx := context.Background()
	const buyer = "+201001234567"

	thisWeek := time.Date(2026, 1, 7, 12, 0, 0, 0, loc)
	limiter := NewLimiter(db, loc, WithLimiterClock(fixedClock(thisWeek)))
	require.NoError(t, limiter.Increment(ctx, buyer))
	require.NoError(t, limiter.Increment(ctx, buyer))
	allowed, err := limiter.Allow(ctx, buyer, 2)
	require.NoError(t, err)
	require.False(t, allowed)

	// 執行測試：下一週的額度重新計算
	nextWeek := NewLimiter(db, loc, WithLimiterClock(fixedClock(thisWeek.AddDate(0, 0, 7))))
	allowed, err = nextWeek.Allow(ctx, buyer, 2)

	// 驗證結果
	require.NoError(t, err)
	assert.True(t, allowed)
}
