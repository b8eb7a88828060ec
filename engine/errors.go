package engine

import (
	"errors"
	"fmt"
)

// ErrorCode 業務錯誤的分類代碼，會原樣回傳給呼叫端
type ErrorCode string

const (
	CodeStockUnavailable   ErrorCode = "StockUnavailable"
	CodeInsufficientMargin ErrorCode = "InsufficientMargin"
	CodeBuyerLimitExceeded ErrorCode = "BuyerLimitExceeded"
	CodeInvalidTransition  ErrorCode = "InvalidTransition"
	CodeNoCapacityHorizon  ErrorCode = "NoCapacityHorizon"
	CodeInvalidAuction     ErrorCode = "InvalidAuction"
	CodeAuctionNotActive   ErrorCode = "AuctionNotActive"
	CodeBidTooLow          ErrorCode = "BidTooLow"
	CodeReservationFailed  ErrorCode = "ReservationFailed"
)

// Error 代表可以直接回覆給呼叫端的業務錯誤
// Details 攜帶讓前端能組出完整訊息的結構化欄位
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError 建立業務錯誤，details 可為 nil
func NewError(code ErrorCode, message string, details map[string]any) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// CodeOf 從錯誤鏈中取出業務錯誤代碼
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
