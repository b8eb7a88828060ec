package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm/clause"

	redisAdapter "lawha/adapters/redis"
	"lawha/engine"
	"lawha/models"
)

type orderDTO struct {
	ID                      uuid.UUID  `json:"id"`
	ArtworkID               uuid.UUID  `json:"artworkId"`
	SizeLabel               string     `json:"sizeLabel"`
	BuyerName               string     `json:"buyerName"`
	Whatsapp                string     `json:"whatsapp,omitempty"`
	PriceCents              int64      `json:"priceCents"`
	Status                  string     `json:"status"`
	HoldExpiresAt           *time.Time `json:"holdExpiresAt,omitempty"`
	ScheduledStartDate      *time.Time `json:"scheduledStartDate,omitempty"`
	EstimatedCompletionDate *time.Time `json:"estimatedCompletionDate,omitempty"`
	QueuePosition           *int       `json:"queuePosition,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
}

func toOrderDTO(order *models.Order) orderDTO {
	return orderDTO{
		ID:                      order.ID,
		ArtworkID:               order.ArtworkID,
		SizeLabel:               order.SizeLabel,
		BuyerName:               order.BuyerName,
		Whatsapp:                order.Whatsapp,
		PriceCents:              order.PriceCents,
		Status:                  string(order.Status),
		HoldExpiresAt:           order.HoldExpiresAt,
		ScheduledStartDate:      order.ScheduledStartDate,
		EstimatedCompletionDate: order.EstimatedCompletionDate,
		QueuePosition:           order.QueuePosition,
		CreatedAt:               order.CreatedAt,
	}
}

type createOrderRequest struct {
	ArtworkID  uuid.UUID `json:"artworkId" binding:"required"`
	Size       string    `json:"size" binding:"required"`
	BuyerName  string    `json:"buyerName" binding:"required"`
	Whatsapp   string    `json:"whatsapp"`
	PriceCents int64     `json:"priceCents"`
}

// Place an order and hold one copy of the artwork
// (POST /orders)
func (impl *ServerImpl) CreateOrder(c *gin.Context) {
	const op = "CreateOrder"
	var request createOrderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": err.Error()})
		return
	}
	order, err := impl.lifecycle.CreateOrder(c.Request.Context(), engine.CreateOrderInput{
		ArtworkID:  request.ArtworkID,
		Size:       request.Size,
		BuyerName:  request.BuyerName,
		Whatsapp:   request.Whatsapp,
		PriceCents: request.PriceCents,
	})
	if err != nil {
		respondError(c, op, err)
		return
	}
	// 紀錄行為事件並發布商店事件，兩者都不影響下單結果
	impl.recordAnalytics(c, models.EventOrderCreated, &order.ArtworkID, map[string]any{"orderId": order.ID.String()})
	if err := impl.publisher.Publish(redisAdapter.StoreEvent{
		Type:        redisAdapter.StoreEventOrderCreated,
		ArtworkID:   order.ArtworkID.String(),
		ResourceID:  order.ID.String(),
		Contact:     order.Whatsapp,
		AmountCents: order.PriceCents,
		OccurredAt:  time.Now(),
	}); err != nil {
		slog.Warn("Fail to publish order event", slog.String("op", op), slog.Any("error", err))
	}
	// 取得畫作標題以組出WhatsApp結帳連結
	var artwork models.Artwork
	checkoutURL := ""
	if result := impl.db.WithContext(c.Request.Context()).First(&artwork, "id = ?", order.ArtworkID); result.Error == nil {
		checkoutURL = impl.checkout.OrderURL(artwork.Title, order.SizeLabel, order.PriceCents)
	}
	c.JSON(http.StatusCreated, gin.H{
		"order":       toOrderDTO(order),
		"whatsappUrl": checkoutURL,
	})
}

// List orders for the back office
// (GET /admin/orders)
func (impl *ServerImpl) ListOrders(c *gin.Context) {
	const op = "ListOrders"
	var orders []models.Order
	query := impl.db.WithContext(c.Request.Context()).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if result := query.Find(&orders); result.Error != nil {
		respondError(c, op, fmt.Errorf("[%s] Fail to list orders, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": lo.Map(orders, func(order models.Order, _ int) orderDTO {
			return toOrderDTO(&order)
		}),
	})
}

// Confirm a pending order and schedule its production
// (POST /admin/orders/{id}/confirm)
func (impl *ServerImpl) ConfirmOrder(c *gin.Context) {
	const op = "ConfirmOrder"
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": "invalid order id"})
		return
	}
	order, err := impl.lifecycle.ConfirmOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, op, err)
		return
	}
	impl.recordAudit(c, "confirm_order", "order", &orderID, map[string]any{"status": string(order.Status)})
	c.JSON(http.StatusOK, toOrderDTO(order))
}

// Mark a confirmed order as shipped
// (POST /admin/orders/{id}/ship)
func (impl *ServerImpl) ShipOrder(c *gin.Context) {
	const op = "ShipOrder"
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": "invalid order id"})
		return
	}
	order, err := impl.lifecycle.MarkShipped(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, op, err)
		return
	}
	impl.recordAudit(c, "ship_order", "order", &orderID, nil)
	c.JSON(http.StatusOK, toOrderDTO(order))
}

// Refund an order and restore its stock hold if it was pending
// (POST /admin/orders/{id}/refund)
func (impl *ServerImpl) RefundOrder(c *gin.Context) {
	const op = "RefundOrder"
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": "invalid order id"})
		return
	}
	order, err := impl.lifecycle.RefundOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, op, err)
		return
	}
	impl.recordAudit(c, "refund_order", "order", &orderID, nil)
	c.JSON(http.StatusOK, toOrderDTO(order))
}

// Cancel expired holds and restore their stock
// (POST /restore-holds)
func (impl *ServerImpl) RestoreHolds(c *gin.Context) {
	const op = "RestoreHolds"
	restored, err := impl.reconciler.RestoreExpiredHolds(c.Request.Context())
	if err != nil {
		respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restoredCount": restored})
}
