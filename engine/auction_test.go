package engine

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawha/models"
)

func TestAuction_PlaceBid(t *testing.T) {
	loc, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, loc)

	tests := []struct {
		name        string
		artwork     models.Artwork
		amountCents int64
		wantCode    ErrorCode
	}{
		{
			name: "success",
			artwork: models.Artwork{
				Slug: "storm", Title: "Storm", Type: models.ArtworkAuction,
				AuctionStart:      lo.ToPtr(now.Add(-time.Hour)),
				AuctionEnd:        lo.ToPtr(now.Add(time.Hour)),
				CurrentBidCents:   100000,
				MinIncrementCents: 50000,
			},
			amountCents: 150001,
		},
		{
			name: "exact_minimum_is_rejected",
			artwork: models.Artwork{
				Slug: "storm", Title: "Storm", Type: models.ArtworkAuction,
				AuctionStart:      lo.ToPtr(now.Add(-time.Hour)),
				AuctionEnd:        lo.ToPtr(now.Add(time.Hour)),
				CurrentBidCents:   100000,
				MinIncrementCents: 50000,
			},
			amountCents: 150000,
			wantCode:    CodeBidTooLow,
		},
		{
			name: "default_min_increment_applies",
			artwork: models.Artwork{
				Slug: "storm", Title: "Storm", Type: models.ArtworkAuction,
				AuctionStart:    lo.ToPtr(now.Add(-time.Hour)),
				AuctionEnd:      lo.ToPtr(now.Add(time.Hour)),
				CurrentBidCents: 100000,
			},
			amountCents: 100000 + DefaultMinIncrementCents,
			wantCode:    CodeBidTooLow,
		},
		{
			name: "non_auction_artwork_rejected",
			artwork: models.Artwork{
				Slug: "storm", Title: "Storm", Type: models.ArtworkUnique,
			},
			amountCents: 999999,
			wantCode:    CodeInvalidAuction,
		},
		{
			name: "before_window_opens",
			artwork: models.Artwork{
				Slug: "storm", Title: "Storm", Type: models.ArtworkAuction,
				AuctionStart: lo.ToPtr(now.Add(time.Hour)),
				AuctionEnd:   lo.ToPtr(now.Add(2 * time.Hour)),
			},
			amountCents: 999999,
			wantCode:    CodeAuctionNotActive,
		},
		{
			name: "after_window_closes",
			artwork: models.Artwork{
				Slug: "storm", Title: "Storm", Type: models.ArtworkAuction,
				AuctionStart: lo.ToPtr(now.Add(-2 * time.Hour)),
				AuctionEnd:   lo.ToPtr(now.Add(-time.Hour)),
			},
			amountCents: 999999,
			wantCode:    CodeAuctionNotActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 準備測試環境
			db := setupDB(t)
			artwork := seedArtwork(t, db, tt.artwork)
			auction := NewAuction(db, stubLockProvider(), WithAuctionClock(fixedClock(now)))

			// 執行測試
			bid, err := auction.PlaceBid(context.Background(), artwork.ID, tt.amountCents, "Mona", "+201001234567")

			// 驗證結果
			if tt.wantCode != "" {
				code, ok := CodeOf(err)
				require.True(t, ok, "expected a business error, got %v", err)
				assert.Equal(t, tt.wantCode, code)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, bid)
			assert.Equal(t, tt.amountCents, bid.AmountCents)

			var updated models.Artwork
			require.NoError(t, db.First(&updated, "id = ?", artwork.ID).Error)
			assert.Equal(t, tt.amountCents, updated.CurrentBidCents)
		})
	}
}

func TestAuction_PlaceBid_AntiSnipe(t *testing.T) {
	// 準備測試環境：結標前三十秒
	db := setupDB(t)
	loc := cairo(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, loc)
	end := now.Add(30 * time.Second)
	artwork := seedArtwork(t, db, models.Artwork{
		Slug: "last-light", Title: "Last Light", Type: models.ArtworkAuction,
		AuctionStart:      lo.ToPtr(now.Add(-time.Hour)),
		AuctionEnd:        lo.ToPtr(end),
		CurrentBidCents:   100000,
		MinIncrementCents: 50000,
	})
	auction := NewAuction(db, stubLockProvider(), WithAuctionClock(fixedClock(now)))

	// 執行測試
	_, err := auction.PlaceBid(context.Background(), artwork.ID, 200000, "Omar", "+201002222222")
	require.NoError(t, err)

	// 驗證結果：結束時間以出價前的值為基準延長兩分鐘
	var updated models.Artwork
	require.NoError(t, db.First(&updated, "id = ?", artwork.ID).Error)
	assert.WithinDuration(t, end.Add(2*time.Minute), *updated.AuctionEnd, time.Second)

	// 距離結標仍超過一分鐘的出價不延長
	early := seedArtwork(t, db, models.Artwork{
		Slug: "first-light", Title: "First Light", Type: models.ArtworkAuction,
		AuctionStart:      lo.ToPtr(now.Add(-time.Hour)),
		AuctionEnd:        lo.ToPtr(now.Add(10 * time.Minute)),
		CurrentBidCents:   100000,
		MinIncrementCents: 50000,
	})
	_, err = auction.PlaceBid(context.Background(), early.ID, 200000, "Omar", "+201002222222")
	require.NoError(t, err)
	var updatedEarly models.Artwork
	require.NoError(t, db.First(&updatedEarly, "id = ?", early.ID).Error)
	assert.WithinDuration(t, now.Add(10*time.Minute), *updatedEarly.AuctionEnd, time.Second)
}

func TestAuction_CloseAuction(t *testing.T) {
	// 準備測試環境
	db := setupDB(t)
	loc := cairo(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, loc)
	artwork := seedArtwork(t, db, models.Artwork{
		Slug: "harbor", Title: "Harbor", Type: models.ArtworkAuction,
		AuctionStart:      lo.ToPtr(now.Add(-2 * time.Hour)),
		AuctionEnd:        lo.ToPtr(now.Add(time.Hour)),
		MinIncrementCents: 50000,
	})
	auction := NewAuction(db, stubLockProvider(), WithAuctionClock(fixedClock(now)))

	ctx := context.Background()
	_, err := auction.PlaceBid(ctx, artwork.ID, 100000, "Mona", "+201001111111")
	require.NoError(t, err)
	_, err = auction.PlaceBid(ctx, artwork.ID, 300000, "Omar", "+201002222222")
	require.NoError(t, err)

	// 執行測試
	winner, err := auction.CloseAuction(ctx, artwork.ID)

	// 驗證結果：最高出價者得標，畫作關閉
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, "Omar", winner.BidderName)
	assert.Equal(t, int64(300000), winner.AmountCents)
	assert.True(t, winner.IsWinner)

	var updated models.Artwork
	require.NoError(t, db.First(&updated, "id = ?", artwork.ID).Error)
	assert.Equal(t, models.ArtworkAuctionClosed, updated.Status)

	// 重複結標會被拒絕
	_, err = auction.CloseAuction(ctx, artwork.ID)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidTransition, code)
}

func TestAuction_CloseAuction_NoBids(t *testing.T) {
	// 準備測試環境
	db := setupDB(t)
	artwork := seedArtwork(t, db, models.Artwork{
		Slug: "quiet", Title: "Quiet", Type: models.ArtworkAuction,
	})
	auction := NewAuction(db, stubLockProvider())

	// 執行測試
	winner, err := auction.CloseAuction(context.Background(), artwork.ID)

	// 驗證結果：無人出價也會關閉
	require.NoError(t, err)
	assert.Nil(t, winner)

	var updated models.Artwork
	require.NoError(t, db.First(&updated, "id = ?", artwork.ID).Error)
	assert.Equal(t, models.ArtworkAuctionClosed, updated.Status)
}
