package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lawha/engine"
)

type capacityDayDTO struct {
	Date      string `json:"date"`
	Available int    `json:"available"`
	Reserved  int    `json:"reserved"`
	Total     int    `json:"total"`
}

// Report available production capacity for the coming days
// (GET /admin/capacity?days=N)
func (impl *ServerImpl) GetCapacity(c *gin.Context) {
	const op = "GetCapacity"
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 60 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": "days must be between 1 and 60"})
			return
		}
		days = parsed
	}
	today := impl.scheduler.Today()
	result := make([]capacityDayDTO, 0, days)
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, i)
		total, reserved, err := impl.scheduler.CapacityFor(c.Request.Context(), date)
		if err != nil {
			respondError(c, op, err)
			return
		}
		available := total - reserved
		if available < 0 {
			available = 0
		}
		result = append(result, capacityDayDTO{
			Date:      date.Format("2006-01-02"),
			Available: available,
			Reserved:  reserved,
			Total:     total,
		})
	}
	c.JSON(http.StatusOK, gin.H{"days": result})
}

type updateStoreSettingsRequest struct {
	DailyCapacity  *int `json:"dailyCapacity"`
	BuyerWeeklyMax *int `json:"buyerWeeklyMax"`
}

// Adjust the daily capacity and the buyer weekly quota
// (POST /admin/capacity/settings)
func (impl *ServerImpl) UpdateStoreSettings(c *gin.Context) {
	const op = "UpdateStoreSettings"
	var request updateStoreSettingsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": err.Error()})
		return
	}
	if request.DailyCapacity == nil && request.BuyerWeeklyMax == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": "no settings to update"})
		return
	}
	ctx := c.Request.Context()
	if request.DailyCapacity != nil {
		if err := impl.settings.SetDailyCapacity(ctx, *request.DailyCapacity); err != nil {
			if errors.Is(err, engine.ErrSettingOutOfRange) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": err.Error()})
				return
			}
			respondError(c, op, err)
			return
		}
	}
	if request.BuyerWeeklyMax != nil {
		if err := impl.settings.SetBuyerWeeklyMax(ctx, *request.BuyerWeeklyMax); err != nil {
			if errors.Is(err, engine.ErrSettingOutOfRange) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": err.Error()})
				return
			}
			respondError(c, op, err)
			return
		}
	}
	impl.recordAudit(c, "update_settings", "settings", nil, map[string]any{
		"dailyCapacity":  request.DailyCapacity,
		"buyerWeeklyMax": request.BuyerWeeklyMax,
	})
	dailyCapacity, err := impl.settings.DailyCapacity(ctx)
	if err != nil {
		respondError(c, op, err)
		return
	}
	buyerWeeklyMax, err := impl.settings.BuyerWeeklyMax(ctx)
	if err != nil {
		respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dailyCapacity":  dailyCapacity,
		"buyerWeeklyMax": buyerWeeklyMax,
	})
}
