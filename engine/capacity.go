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

const dayKeyLayout = "2006-01-02"

// Scheduler 管理每日製作產能
// 產能列惰性建立，預約走條件式遞增，確保不會超訂
type Scheduler struct {
	db       *gorm.DB
	settings *Settings
	loc      *time.Location
	now      func() time.Time
}

type SchedulerOption func(*Scheduler)

// WithSchedulerClock 覆寫時間來源，測試用
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

func NewScheduler(db *gorm.DB, settings *Settings, loc *time.Location, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{db: db, settings: settings, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) dayKey(t time.Time) string {
	return t.In(s.loc).Format(dayKeyLayout)
}

// Today 回傳商店時區的今日零點
func (s *Scheduler) Today() time.Time {
	local := s.now().In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}

// CapacityFor 回傳某日的總產能與已預約數
// 尚未有人預約的日期沿用目前的每日產能設定
func (s *Scheduler) CapacityFor(ctx context.Context, date time.Time) (total, reserved int, err error) {
	const op = "Scheduler.CapacityFor"
	var slot models.ProductionSlot
	qerr := s.db.WithContext(ctx).Where("day = ?", s.dayKey(date)).First(&slot).Error
	if errors.Is(qerr, gorm.ErrRecordNotFound) {
		// 尚未有人預約該日，容量等於目前設定值
		total, err = s.settings.DailyCapacity(ctx)
		return total, 0, err
	}
	if qerr != nil {
		return 0, 0, fmt.Errorf("[%s] fail to query production slot, err=%w", op, qerr)
	}
	return slot.CapacityTotal, slot.CapacityReserved, nil
}

// AvailableCapacity 回傳某日還可以接的製作單數
func (s *Scheduler) AvailableCapacity(ctx context.Context, date time.Time) (int, error) {
	total, reserved, err := s.CapacityFor(ctx, date)
	if err != nil {
		return 0, err
	}
	if reserved >= total {
		return 0, nil
	}
	return total - reserved, nil
}

// ReserveCapacity 預約某日的一個製作位置，回傳 1 起算的隊列位置
// 該日額滿時回傳 ReservationFailed
func (s *Scheduler) ReserveCapacity(ctx context.Context, date time.Time) (int, error) {
	const op = "Scheduler.ReserveCapacity"
	day := s.dayKey(date)

	reserve := func() (int, bool, error) {
		var slot models.ProductionSlot
		result := s.db.WithContext(ctx).
			Model(&slot).
			Clauses(clause.Returning{Columns: []clause.Column{{Name: "capacity_reserved"}}}).
			Where("day = ? AND capacity_reserved < capacity_total", day).
			UpdateColumn("capacity_reserved", gorm.Expr("capacity_reserved + 1"))
		if result.Error != nil {
			return 0, false, fmt.Errorf("[%s] fail to reserve capacity, err=%w", op, result.Error)
		}
		return slot.CapacityReserved, result.RowsAffected == 1, nil
	}

	position, ok, err := reserve()
	if err != nil {
		return 0, err
	}
	if ok {
		return position, nil
	}

	// 沒有可遞增的列：可能該日尚未建立，惰性建立並直接佔據第一個位置
	total, err := s.settings.DailyCapacity(ctx)
	if err != nil {
		return 0, err
	}
	slot := models.ProductionSlot{Day: day, CapacityTotal: total, CapacityReserved: 1}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoNothing: true,
	}).Create(&slot)
	if result.Error != nil {
		return 0, fmt.Errorf("[%s] fail to create production slot, err=%w", op, result.Error)
	}
	if result.RowsAffected == 1 {
		return 1, nil
	}

	// 建立時撞到既有列，表示剛剛輸給了另一筆預約，再試一次
	position, ok, err = reserve()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, NewError(CodeReservationFailed, "production day is fully booked",
			map[string]any{"day": day})
	}
	return position, nil
}

// ReleaseCapacity 釋放某日的一個製作位置，用於預約後續步驟失敗時的補償
func (s *Scheduler) ReleaseCapacity(ctx context.Context, date time.Time) error {
	const op = "Scheduler.ReleaseCapacity"
	result := s.db.WithContext(ctx).
		Model(&models.ProductionSlot{}).
		Where("day = ? AND capacity_reserved > 0", s.dayKey(date)).
		UpdateColumn("capacity_reserved", gorm.Expr("capacity_reserved - 1"))
	if result.Error != nil {
		return fmt.Errorf("[%s] fail to release capacity, err=%w", op, result.Error)
	}
	return nil
}

// NextAvailableSlot 從今日起逐日掃描，回傳第一個還有空位的日期
// 以及若預約將佔據的隊列位置，horizonDays 內都額滿時 found 為 false
func (s *Scheduler) NextAvailableSlot(ctx context.Context, horizonDays int) (date time.Time, position int, found bool, err error) {
	start := s.Today()
	for i := 0; i < horizonDays; i++ {
		day := start.AddDate(0, 0, i)
		total, reserved, cerr := s.CapacityFor(ctx, day)
		if cerr != nil {
			return time.Time{}, 0, false, cerr
		}
		if reserved < total {
			return day, reserved + 1, true, nil
		}
	}
	return time.Time{}, 0, false, nil
}
