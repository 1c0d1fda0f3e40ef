package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedPhoto = errors.New("photo must be an image")
	ErrPhotoTooLarge    = errors.New("photo exceeds size limit")
)

// PhotoStore persists an uploaded meal or profile photo and returns the URL
// clients should load it from.
type PhotoStore interface {
	Save(ctx context.Context, fileHeader *multipart.FileHeader, key string) (string, error)
}

// PhotoKey builds the object key for an upload, e.g. "meals/<user>/<uuid>.jpg".
func PhotoKey(prefix, userID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s/%s/%s%s", prefix, userID, uuid.NewString(), ext)
}

// CheckPhoto rejects files over maxBytes and anything that does not sniff as
// an image. It returns the detected content type.
func CheckPhoto(fileHeader *multipart.FileHeader, maxBytes int64) (string, error) {
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrPhotoTooLarge, fileHeader.Size, maxBytes)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	contentType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: got %s", ErrUnsupportedPhoto, contentType)
	}
	return contentType, nil
}
