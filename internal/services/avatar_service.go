package services

import (
	"context"
	"path"
	"strings"

	convo_errors "convo-chat/pkg/errors"

	"github.com/google/uuid"
)

// Presigner issues direct-to-bucket upload URLs.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, map[string]string, error)
	FileURL(key string) string
}

type AvatarUpload struct {
	UploadURL string
	FileURL   string
	Key       string
	Headers   map[string]string
}

type AvatarService struct {
	storage Presigner
}

// NewAvatarService accepts a nil presigner; uploads then report
// ErrServiceUnavailable.
func NewAvatarService(storage Presigner) *AvatarService {
	return &AvatarService{storage: storage}
}

func (s *AvatarService) CreateUploadURL(ctx context.Context, fileName, contentType string, sizeBytes int64) (AvatarUpload, error) {
	if s.storage == nil {
		return AvatarUpload{}, convo_errors.ErrServiceUnavailable
	}
	if !strings.HasPrefix(contentType, "image/") {
		return AvatarUpload{}, convo_errors.ErrInvalidInput
	}

	key := "avatars/" + uuid.NewString() + strings.ToLower(path.Ext(fileName))
	fileURL := s.storage.FileURL(key)
	if fileURL == "" {
		return AvatarUpload{}, convo_errors.ErrServiceUnavailable
	}
	uploadURL, headers, err := s.storage.PresignPut(ctx, key, contentType, sizeBytes)
	if err != nil {
		return AvatarUpload{}, err
	}
	return AvatarUpload{
		UploadURL: uploadURL,
		FileURL:   fileURL,
		Key:       key,
		Headers:   headers,
	}, nil
}
