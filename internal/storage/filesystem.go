// Package storage persists generated video artifacts onto the local
// filesystem and serves as the download collaborator for completed jobs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStore stores downloaded videos under a base directory. Stored locations
// are returned as "/videos/<filename>" so the routing layer can serve them.
type FileStore struct {
	basePath   string
	httpClient *http.Client
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{
		basePath:   basePath,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Download streams the artifact at url into the store and returns its stored
// location. Optional headers are attached to the request for providers whose
// content endpoints require the original credential.
func (s *FileStore) Download(ctx context.Context, url, filename string, headers map[string]string) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if filename == "" {
		filename = uuid.NewString() + ".mp4"
	}
	cleanName, err := sanitizeName(filename)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("storage: build download request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: download video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("storage: download status %d", resp.StatusCode)
	}

	fullPath := filepath.Join(s.basePath, cleanName)
	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("storage: close file: %w", err)
	}
	return "/videos/" + cleanName, nil
}

// Path returns the full filesystem path for a stored video.
func (s *FileStore) Path(filename string) (string, error) {
	cleanName, err := sanitizeName(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, cleanName), nil
}

// Exists reports whether a stored video is present.
func (s *FileStore) Exists(filename string) bool {
	path, err := s.Path(filename)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(path)
	return statErr == nil
}

// Delete removes a stored video. Missing files are not an error.
func (s *FileStore) Delete(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

// sanitizeName rejects filenames that would escape the storage root.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("storage: filename is required")
	}
	name = strings.ReplaceAll(name, "\\", "/")
	cleaned := filepath.Clean(name)
	if cleaned == "." || strings.Contains(cleaned, "/") {
		return "", errors.New("storage: invalid filename")
	}
	return cleaned, nil
}
