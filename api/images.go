package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"lawha/adapters/auth"
	internalS3 "lawha/adapters/s3"
	"lawha/models"
)

// Upload an artwork image and return its public URL
// (POST /admin/images)
func (impl *ServerImpl) UploadImage(c *gin.Context) {
	const op = "UploadImage"
	// 限制圖片
	// 	1. 小於5MB
	// 	2. MIME類型為不包含腳本的圖片檔案
	body := internalS3.NewCappedReader(c.Request.Body, 5<<20)
	file, err := io.ReadAll(body)
	if errors.As(err, &internalS3.ErrSizeLimitType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": err.Error()})
		return
	}
	if err != nil {
		respondError(c, op, fmt.Errorf("[%s] Fail to read image, err=%w", op, err))
		return
	}
	mimeType := http.DetectContentType(file)
	ext, secure := internalS3.ImageExtension(mimeType)
	if !secure {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BadRequest", "message": fmt.Sprintf("Invalid image type: %s", mimeType)})
		return
	}
	// 透過S3 API儲存圖片
	url, err := impl.imageStore.UploadArtworkImage(c.Request.Context(), ext, mimeType, file)
	if err != nil {
		respondError(c, op, fmt.Errorf("[%s] Fail to upload image, err=%w", op, err))
		return
	}
	// 在DB紀錄圖片的上傳紀錄
	image := models.Image{
		UploaderEmail: auth.AdminEmail(c),
		Url:           url,
	}
	if result := impl.db.WithContext(c.Request.Context()).Create(&image); result.Error != nil {
		respondError(c, op, fmt.Errorf("[%s] Fail to create image, err=%w", op, result.Error))
		return
	}
	c.Header("Location", url)
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
