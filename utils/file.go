package utils

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes photos under Dir; the app serves Dir at /uploads.
type LocalStore struct {
	Dir        string
	PublicBase string
	MaxBytes   int64
}

func NewLocalStore(dir, publicBase string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to ensure upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, PublicBase: strings.TrimRight(publicBase, "/"), MaxBytes: maxBytes}, nil
}

func (s *LocalStore) Save(_ context.Context, fileHeader *multipart.FileHeader, key string) (string, error) {
	if _, err := CheckPhoto(fileHeader, s.MaxBytes); err != nil {
		return "", err
	}
	if err := SaveFile(fileHeader, s.path(key)); err != nil {
		return "", fmt.Errorf("failed to save photo: %w", err)
	}
	return fmt.Sprintf("%s/%s", s.PublicBase, key), nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.Dir, filepath.FromSlash(filepath.Clean("/"+key)))
}

// SaveFile saves the uploaded file to the given destination path
func SaveFile(fileHeader *multipart.FileHeader, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, file)
	return err
}
