package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PostImagesDir      = "post_images"
	ProfilePicturesDir = "profile_pictures"

	MaxImageSize = 5 << 20
)

var (
	ErrImageTooLarge    = errors.New("image must not be larger than 5MB")
	ErrUnsupportedImage = errors.New("upload a valid image; supported formats are jpeg, png, gif and webp")
)

// LocalStorage keeps uploaded files below root and serves them under baseURL.
type LocalStorage struct {
	root    string
	baseURL string
	now     func() time.Time
}

func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	err := os.MkdirAll(root, 0o755)
	if err != nil {
		return nil, fmt.Errorf("could not create media root: %w", err)
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &LocalStorage{root: root, baseURL: baseURL, now: time.Now}, nil
}

// Root is the directory files are written to.
func (s *LocalStorage) Root() string {
	return s.root
}

// SaveImage validates r as an image and stores it under dir/YYYY/MM/DD/<uuid>.<ext>. The returned
// key is relative to the media root and always uses forward slashes.
func (s *LocalStorage) SaveImage(dir string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("could not read upload: %w", err)
	}

	if len(data) > MaxImageSize {
		return "", ErrImageTooLarge
	}

	ext, err := DetectImage(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	key := path.Join(dir, s.now().Format("2006/01/02"), uuid.NewString()+"."+ext)
	dst := filepath.Join(s.root, filepath.FromSlash(key))

	err = os.MkdirAll(filepath.Dir(dst), 0o755)
	if err != nil {
		return "", fmt.Errorf("could not create upload directory: %w", err)
	}

	err = os.WriteFile(dst, data, 0o644)
	if err != nil {
		return "", fmt.Errorf("could not write upload: %w", err)
	}

	return key, nil
}

// Delete removes a stored file. Missing files are ignored.
func (s *LocalStorage) Delete(key string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+key))))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

// URL returns the public URL of a stored file.
func (s *LocalStorage) URL(key string) string {
	return s.baseURL + strings.TrimPrefix(key, "/")
}
