package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lawha/models"
)

const weekKeyLayout = "2006-01-02"

// WeekStartFor 回傳 t 所在週的起點，即商店時區中最近的週日 00:00
func WeekStartFor(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return day.AddDate(0, 0, -int(local.Weekday()))
}

// Limiter 追蹤單一買家每週已確認的訂單數
// 計數只在訂單確認時遞增，保留到期取消不影響額度
type Limiter struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

type LimiterOption func(*Limiter)

// WithLimiterClock 覆寫時間來源，測試用
func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		l.now = now
	}
}

func NewLimiter(db *gorm.DB, loc *time.Location, opts ...LimiterOption) *Limiter {
	l := &Limiter{db: db, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) weekKey() string {
	return WeekStartFor(l.now(), l.loc).Format(weekKeyLayout)
}

// Allow 檢查買家本週是否還有確認額度
// 聯絡方式為空時一律放行
func (l *Limiter) Allow(ctx context.Context, whatsapp string, max int) (bool, error) {
	const op = "Limiter.Allow"
	if whatsapp == "" {
		return true, nil
	}
	var record models.BuyerLimit
	err := l.db.WithContext(ctx).
		Where("whatsapp = ? AND week_start = ?", whatsapp, l.weekKey()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("[%s] fail to query buyer limit, err=%w", op, err)
	}
	return record.ConfirmedOrdersCount < max, nil
}

// Increment 在訂單確認時累加買家的本週計數，upsert 方式寫入
func (l *Limiter) Increment(ctx context.Context, whatsapp string) error {
	return l.increment(l.db.WithContext(ctx), whatsapp)
}

// IncrementTx 與 Increment 相同，但使用呼叫端提供的交易
func (l *Limiter) IncrementTx(tx *gorm.DB, whatsapp string) error {
	return l.increment(tx, whatsapp)
}

func (l *Limiter) increment(db *gorm.DB, whatsapp string) error {
	const op = "Limiter.Increment"
	if whatsapp == "" {
		return nil
	}
	record := models.BuyerLimit{
		Whatsapp:             whatsapp,
		WeekStart:            l.weekKey(),
		ConfirmedOrdersCount: 1,
	}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "whatsapp"}, {Name: "week_start"}},
		DoUpdates: clause.Assignments(map[string]any{
			"confirmed_orders_count": gorm.Expr("confirmed_orders_count + 1"),
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("[%s] fail to upsert buyer limit, err=%w", op, err)
	}
	return nil
}

// ConfirmedThisWeek 查詢買家本週已確認的訂單數
func (l *Limiter) ConfirmedThisWeek(ctx context.Context, whatsapp string) (int, error) {
	const op = "Limiter.ConfirmedThisWeek"
	var record models.BuyerLimit
	err := l.db.WithContext(ctx).
		Where("whatsapp = ? AND week_start = ?", whatsapp, l.weekKey()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("[%s] fail to query buyer limit, err=%w", op, err)
	}
	return record.ConfirmedOrdersCount, nil
}
