package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/homefix/homefix-api/utils"
)

// ImageService handles request attachments: validation, upload, URL resolution and deletion
type ImageService struct {
	storage ObjectStorage
}

// NewImageService creates an image service on top of a storage backend
func NewImageService(storage ObjectStorage) *ImageService {
	return &ImageService{storage: storage}
}

// UploadImage validates a PNG upload and stores it, returning the storage key
func (s *ImageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	content, err := utils.ReadImageFile(fileHeader)
	if err != nil {
		return "", err
	}

	key := utils.NewImageKey()
	if err := s.storage.Put(ctx, key, content, utils.ImageContentType); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// GetImageURL generates a URL for accessing an image
func (s *ImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.storage.URL(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

// DeleteImage removes an image from storage
func (s *ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.storage.Delete(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
