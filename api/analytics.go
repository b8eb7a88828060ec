package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lawha/models"
)

// recordAnalytics 寫入一筆行為事件，失敗只記錄不影響原本的操作
func (impl *ServerImpl) recordAnalytics(c *gin.Context, eventType models.AnalyticsEventType, artworkID *uuid.UUID, metadata map[string]any) {
	event := models.AnalyticsEvent{
		EventType: eventType,
		ArtworkID: artworkID,
		Metadata:  metadata,
	}
	if result := impl.db.WithContext(c.Request.Context()).Create(&event); result.Error != nil {
		slog.Warn("Fail to record analytics event",
			slog.String("eventType", string(eventType)),
			slog.Any("error", result.Error),
		)
	}
}

type recordAnalyticsRequest struct {
	EventType string         `json:"eventType" binding:"required"`
	ArtworkID *uuid.UUID     `json:"artworkId"`
	Metadata  map[string]any `json:"metadata"`
}

// Record a storefront behavior event
// (POST /analytics)
func (impl *ServerImpl) RecordAnalyticsEvent(c *gin.Context) {
	const op = "RecordAnalyticsEvent"
	var request recordAnalyticsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": err.Error()})
		return
	}
	// 僅接受前台自行回報的事件種類，下單與出價事件由對應的操作寫入
	eventType := models.AnalyticsEventType(request.EventType)
	switch eventType {
	case models.EventPageView, models.EventWhatsappClick, models.EventHoverStory:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": "unsupported event type"})
		return
	}
	event := models.AnalyticsEvent{
		EventType: eventType,
		ArtworkID: request.ArtworkID,
		Metadata:  request.Metadata,
	}
	if result := impl.db.WithContext(c.Request.Context()).Create(&event); result.Error != nil {
		respondError(c, op, fmt.Errorf("[%s] Fail to create analytics event, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": event.ID})
}

type eventCount struct {
	EventType string `json:"eventType"`
	Count     int64  `json:"count"`
}

// Summarize storefront behavior events for the back office
// (GET /admin/analytics)
func (impl *ServerImpl) AnalyticsSummary(c *gin.Context) {
	const op = "AnalyticsSummary"
	var counts []eventCount
	result := impl.db.WithContext(c.Request.Context()).
		Model(&models.AnalyticsEvent{}).
		Select("event_type, count(*) as count").
		Group("event_type").
		Scan(&counts)
	if result.Error != nil {
		respondError(c, op, fmt.Errorf("[%s] Fail to summarize analytics events, err=%w", op, result.Error))
		return
	}
	// 轉換率以頁面瀏覽數為分母、下單數為分子
	var pageViews, ordersCreated int64
	for _, row := range counts {
		switch models.AnalyticsEventType(row.EventType) {
		case models.EventPageView:
			pageViews = row.Count
		case models.EventOrderCreated:
			ordersCreated = row.Count
		}
	}
	conversionRate := 0.0
	if pageViews > 0 {
		conversionRate = float64(ordersCreated) / float64(pageViews)
	}
	c.JSON(http.StatusOK, gin.H{
		"events":         counts,
		"conversionRate": conversionRate,
	})
}
