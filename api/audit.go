package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lawha/adapters/auth"
	"lawha/models"
)

// recordAudit 寫入一筆後台操作稽核紀錄
// 稽核失敗只記錄不影響原本的操作結果
func (impl *ServerImpl) recordAudit(c *gin.Context, action, resourceType string, resourceID *uuid.UUID, metadata map[string]any) {
	audit := models.AdminAudit{
		AdminEmail:   auth.AdminEmail(c),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
	}
	if result := impl.db.WithContext(c.Request.Context()).Create(&audit); result.Error != nil {
		slog.Warn("Fail to record admin audit",
			slog.String("action", action),
			slog.Any("error", result.Error),
		)
	}
}
