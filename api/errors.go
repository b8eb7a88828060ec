package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"lawha/engine"
)

// statusForCode 把業務錯誤代碼對應到HTTP狀態碼
func statusForCode(code engine.ErrorCode) int {
	switch code {
	case engine.CodeStockUnavailable,
		engine.CodeInvalidTransition,
		engine.CodeNoCapacityHorizon,
		engine.CodeReservationFailed:
		return http.StatusConflict
	case engine.CodeInsufficientMargin:
		return http.StatusUnprocessableEntity
	case engine.CodeBuyerLimitExceeded:
		return http.StatusTooManyRequests
	case engine.CodeInvalidAuction:
		return http.StatusNotFound
	case engine.CodeAuctionNotActive:
		return http.StatusForbidden
	case engine.CodeBidTooLow:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError 把錯誤轉成統一的JSON回應
// 業務錯誤原樣帶出代碼與細節，其他錯誤記錄後回500
func respondError(c *gin.Context, op string, err error) {
	var businessErr *engine.Error
	if errors.As(err, &businessErr) {
		body := gin.H{
			"error":   string(businessErr.Code),
			"message": businessErr.Message,
		}
		if len(businessErr.Details) > 0 {
			body["details"] = businessErr.Details
		}
		c.JSON(statusForCode(businessErr.Code), body)
		return
	}
	slog.Error("Fail to handle request", slog.String("op", op), slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "InternalError", "message": "internal server error"})
}
