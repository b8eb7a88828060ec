package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const adminEmailKey = "adminEmail"

// AdminRequired 驗證 Bearer 權杖，通過後把管理員信箱放進請求 context
func AdminRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		claims, err := ParseAndValidateToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(adminEmailKey, claims.Email)
		c.Next()
	}
}

// AdminEmail 取出目前請求的管理員信箱，未經過中介層時回傳空字串
func AdminEmail(c *gin.Context) string {
	return c.GetString(adminEmailKey)
}
