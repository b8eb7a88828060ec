package s3

// AllowedImageExtensions 定義了允許上傳的安全圖片類型及其對應的副檔名
var AllowedImageExtensions = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	"image/tiff": "tiff",
	"image/webp": "webp",
}

// ImageExtension 檢查給定的 MIME 類型是否為允許的圖片類型，並返回對應的副檔名
func ImageExtension(mimeType string) (string, bool) {
	ext, ok := AllowedImageExtensions[mimeType]
	return ext, ok
}
