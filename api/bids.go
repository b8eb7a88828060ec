package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	redisAdapter "lawha/adapters/redis"
	"lawha/models"
)

type bidDTO struct {
	ID          uuid.UUID `json:"id"`
	BidderName  string    `json:"bidderName"`
	AmountCents int64     `json:"amountCents"`
	IsWinner    bool      `json:"isWinner"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toBidDTO(bid *models.Bid) bidDTO {
	return bidDTO{
		ID:          bid.ID,
		BidderName:  bid.BidderName,
		AmountCents: bid.AmountCents,
		IsWinner:    bid.IsWinner,
		CreatedAt:   bid.CreatedAt,
	}
}

type placeBidRequest struct {
	ArtworkID   uuid.UUID `json:"artworkId" binding:"required"`
	AmountCents int64     `json:"amountCents" binding:"required"`
	BidderName  string    `json:"bidderName" binding:"required"`
	Whatsapp    string    `json:"whatsapp"`
}

// Place a bid on an auction artwork
// (POST /bids)
func (impl *ServerImpl) PlaceBid(c *gin.Context) {
	const op = "PlaceBid"
	var request placeBidRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": err.Error()})
		return
	}
	bid, err := impl.auction.PlaceBid(c.Request.Context(), request.ArtworkID, request.AmountCents, request.BidderName, request.Whatsapp)
	if err != nil {
		respondError(c, op, err)
		return
	}
	// 紀錄行為事件並發布商店事件，兩者都不影響出價結果
	impl.recordAnalytics(c, models.EventBidPlaced, &request.ArtworkID, map[string]any{"bidId": bid.ID.String()})
	if err := impl.publisher.Publish(redisAdapter.StoreEvent{
		Type:        redisAdapter.StoreEventBidPlaced,
		ArtworkID:   request.ArtworkID.String(),
		ResourceID:  bid.ID.String(),
		Contact:     request.Whatsapp,
		AmountCents: bid.AmountCents,
		OccurredAt:  time.Now(),
	}); err != nil {
		slog.Warn("Fail to publish bid event", slog.String("op", op), slog.Any("error", err))
	}
	c.JSON(http.StatusCreated, toBidDTO(bid))
}

// List bids of an auction artwork, newest first
// (GET /artworks/{slug}/bids)
func (impl *ServerImpl) ListArtworkBids(c *gin.Context) {
	const op = "ListArtworkBids"
	var artwork models.Artwork
	result := impl.db.WithContext(c.Request.Context()).
		Preload("BidRecords", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true})
		}).
		Where("slug = ?", c.Param("slug")).
		First(&artwork)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "NotFound", "message": "artwork not found"})
			return
		}
		respondError(c, op, fmt.Errorf("[%s] Fail to find artwork, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"currentBidCents": artwork.CurrentBidCents,
		"bids": lo.Map(artwork.BidRecords, func(bid models.Bid, _ int) bidDTO {
			return toBidDTO(&bid)
		}),
	})
}

// Close an auction and mark the winning bid
// (POST /admin/auctions/{id}/close)
func (impl *ServerImpl) CloseAuction(c *gin.Context) {
	const op = "CloseAuction"
	artworkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": "invalid artwork id"})
		return
	}
	winner, err := impl.auction.CloseAuction(c.Request.Context(), artworkID)
	if err != nil {
		respondError(c, op, err)
		return
	}
	impl.recordAudit(c, "close_auction", "artwork", &artworkID, nil)
	if winner == nil {
		c.JSON(http.StatusOK, gin.H{"winner": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"winner": toBidDTO(winner)})
}
