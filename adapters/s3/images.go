package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// 畫作圖片統一放在這個前綴底下
const artworkImagePrefix = "artworks"

type ImageStore struct {
	// Client 是 S3 客戶端。
	Client *s3.Client
	// Bucket 是 S3 存儲桶的名稱。
	Bucket string
	// PublicEndpoint 是 S3 存儲桶的公開 Endpoint。
	PublicEndpoint *url.URL
}

func NewImageStore(client *s3.Client, bucket, publicBaseURL string) (*ImageStore, error) {
	const op = "NewImageStore"
	publicEndpoint, err := url.Parse(publicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse public base URL, err=%w", op, err)
	}
	return &ImageStore{Client: client, Bucket: bucket, PublicEndpoint: publicEndpoint}, nil
}

// UploadArtworkImage 上傳畫作圖片並回傳公開 URL
// 物件名稱以亂數產生，副檔名由呼叫端依 MIME 檢查結果提供
func (s *ImageStore) UploadArtworkImage(ctx context.Context, extension, contentType string, content []byte) (string, error) {
	const op = "UploadArtworkImage"
	key := fmt.Sprintf("%s/%s.%s", artworkImagePrefix, uuid.New(), extension)
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to upload image to S3, err=%w", op, err)
	}
	uri := *s.PublicEndpoint
	uri.Path = path.Join(uri.Path, key)
	return uri.String(), nil
}
