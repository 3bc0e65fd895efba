package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// PhotoStorage uploads processed tank photos to S3.
type PhotoStorage struct {
	client *s3.Client
	bucket string
	region string
}

func NewPhotoStorage(bucket, region string) (*PhotoStorage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %v", err)
	}

	return &PhotoStorage{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
	}, nil
}

// UploadPhoto stores an already-encoded image buffer and returns its public
// URL. Keys are user_id/tank_id/uuid so replacing a photo never collides.
func (s *PhotoStorage) UploadPhoto(ctx context.Context, buf *bytes.Buffer, contentType string, userID, tankID uint) (string, error) {
	key := fmt.Sprintf("%d/%d/%s%s", userID, tankID, uuid.NewString(), extensionFor(contentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("could not upload to S3: %v", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// DeletePhoto removes a previously uploaded photo by its public URL.
func (s *PhotoStorage) DeletePhoto(ctx context.Context, photoURL string) error {
	parts := strings.Split(photoURL, "/")
	if len(parts) < 4 {
		return fmt.Errorf("unrecognized photo URL: %s", photoURL)
	}
	key := strings.Join(parts[3:], "/")

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ""
}
