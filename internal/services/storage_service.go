// internal/services/storage_service.go
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/kitshop/backend/internal/config"
)

// StorageService resolves a content reference to something the chat
// transport can send. References prefixed with "s3://" are kit files
// in the content bucket and resolve to a presigned URL; anything else
// (telegram file ids) passes through untouched. Without AWS
// credentials the service degrades to pass-through, mirroring local
// development.
type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	if cfg.AWS.AccessKeyID == "" {
		// Pass-through mode for local development
		return &StorageService{config: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   cfg,
	}, nil
}

// PassthroughStorage returns a resolver that hands every content
// reference back unchanged, keeping delivery of chat-platform file
// ids working when AWS initialization fails.
func PassthroughStorage(cfg *config.Config) *StorageService {
	return &StorageService{config: cfg}
}

func (s *StorageService) ResolveContent(fileID string) (string, error) {
	key, ok := strings.CutPrefix(fileID, "s3://")
	if !ok || s.s3Client == nil {
		return fileID, nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(time.Duration(s.config.AWS.PresignTTLMin) * time.Minute)
	if err != nil {
		return "", fmt.Errorf("failed to presign content URL: %w", err)
	}

	return url, nil
}
