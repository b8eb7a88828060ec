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
	// DefaultMinIncrementCents 畫作未設定時的最低加價額（500 EGP）
	DefaultMinIncrementCents = 50000

	// 結標前最後一分鐘內的出價會把結束時間往後延兩分鐘
	snipeWindow    = 60 * time.Second
	snipeExtension = 120 * time.Second
)

// Locker 出價用的互斥鎖，同一幅畫作的出價必須序列化
// Lock 回傳的 context 會在鎖意外失效時被取消
type Locker interface {
	Lock(ctx context.Context) (context.Context, error)
	Unlock() (bool, error)
}

// LockProvider 依畫作 ID 建立對應的鎖
type LockProvider func(artworkID uuid.UUID) Locker

// Auction 處理拍賣畫作的出價與結標
type Auction struct {
	db      *gorm.DB
	lockFor LockProvider
	now     func() time.Time
	logger  *slog.Logger
}

type AuctionOption func(*Auction)

// WithAuctionClock 覆寫時間來源，測試用
func WithAuctionClock(now func() time.Time) AuctionOption {
	return func(a *Auction) {
		a.now = now
	}
}

func NewAuction(db *gorm.DB, lockFor LockProvider, opts ...AuctionOption) *Auction {
	a := &Auction{
		db:      db,
		lockFor: lockFor,
		now:     time.Now,
		logger:  slog.Default().With(slog.String("caller", "engine-auction")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PlaceBid 對拍賣畫作出價
// 整段流程持有該畫作的分散式鎖，出價必須嚴格大於目前最高價加最低加價額
func (a *Auction) PlaceBid(ctx context.Context, artworkID uuid.UUID, amountCents int64, bidderName, whatsapp string) (*models.Bid, error) {
	const op = "Auction.PlaceBid"

	lock := a.lockFor(artworkID)
	lockCtx, err := lock.Lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("[%s] fail to acquire bid lock, err=%w", op, err)
	}
	defer func() {
		if ok, uerr := lock.Unlock(); uerr != nil || !ok {
			a.logger.Warn("fail to release bid lock",
				slog.String("op", op),
				slog.String("artworkID", artworkID.String()),
				slog.Any("error", uerr))
		}
	}()

	var bid *models.Bid
	err = a.db.WithContext(lockCtx).Transaction(func(tx *gorm.DB) error {
		var artwork models.Artwork
		if err := tx.First(&artwork, "id = ?", artworkID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewError(CodeInvalidAuction, "auction not found", nil)
			}
			return fmt.Errorf("[%s] fail to query artwork, err=%w", op, err)
		}
		if artwork.Type != models.ArtworkAuction || artwork.Status == models.ArtworkAuctionClosed {
			return NewError(CodeInvalidAuction, "artwork is not an open auction", nil)
		}
		now := a.now()
		if artwork.AuctionStart == nil || artwork.AuctionEnd == nil ||
			now.Before(*artwork.AuctionStart) || now.After(*artwork.AuctionEnd) {
			return NewError(CodeAuctionNotActive, "bidding window is closed", map[string]any{
				"auction_start": artwork.AuctionStart,
				"auction_end":   artwork.AuctionEnd,
			})
		}

		minIncrement := artwork.MinIncrementCents
		if minIncrement <= 0 {
			minIncrement = DefaultMinIncrementCents
		}
		if amountCents <= artwork.CurrentBidCents+minIncrement {
			return NewError(CodeBidTooLow, "bid must exceed current bid plus minimum increment", map[string]any{
				"current_bid_cents":   artwork.CurrentBidCents,
				"min_increment_cents": minIncrement,
			})
		}

		bid = &models.Bid{
			ArtworkID:   artworkID,
			BidderName:  bidderName,
			Whatsapp:    whatsapp,
			AmountCents: amountCents,
		}
		if err := tx.Create(bid).Error; err != nil {
			return fmt.Errorf("[%s] fail to create bid, err=%w", op, err)
		}

		updates := map[string]any{"current_bid_cents": amountCents}
		// 反狙擊：延長量以出價前的結束時間為基準
		if artwork.AuctionEnd.Sub(now) < snipeWindow {
			updates["auction_end"] = artwork.AuctionEnd.Add(snipeExtension)
		}
		if err := tx.Model(&models.Artwork{}).Where("id = ?", artworkID).Updates(updates).Error; err != nil {
			return fmt.Errorf("[%s] fail to update current bid, err=%w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// CloseAuction 結束拍賣，把最高出價標記為得標並關閉畫作
// 沒有任何出價時仍會關閉，回傳的得標紀錄為 nil
func (a *Auction) CloseAuction(ctx context.Context, artworkID uuid.UUID) (*models.Bid, error) {
	const op = "Auction.CloseAuction"

	var winner *models.Bid
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var artwork models.Artwork
		if err := tx.First(&artwork, "id = ?", artworkID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewError(CodeInvalidAuction, "auction not found", nil)
			}
			return fmt.Errorf("[%s] fail to query artwork, err=%w", op, err)
		}
		if artwork.Type != models.ArtworkAuction {
			return NewError(CodeInvalidAuction, "artwork is not an auction", nil)
		}
		if artwork.Status == models.ArtworkAuctionClosed {
			return NewError(CodeInvalidTransition, "auction is already closed", map[string]any{
				"status": artwork.Status,
			})
		}

		var top models.Bid
		err := tx.Where("artwork_id = ?", artworkID).
			Order("amount_cents DESC, created_at ASC").
			First(&top).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// 無人出價，僅關閉拍賣
		case err != nil:
			return fmt.Errorf("[%s] fail to query bids, err=%w", op, err)
		default:
			if err := tx.Model(&top).UpdateColumn("is_winner", true).Error; err != nil {
				return fmt.Errorf("[%s] fail to mark winner, err=%w", op, err)
			}
			top.IsWinner = true
			winner = &top
		}

		if err := tx.Model(&models.Artwork{}).Where("id = ?", artworkID).
			UpdateColumn("status", models.ArtworkAuctionClosed).Error; err != nil {
			return fmt.Errorf("[%s] fail to close auction, err=%w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return winner, nil
}
