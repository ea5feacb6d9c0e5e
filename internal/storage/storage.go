package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/straye-as/opportunity-sync/internal/config"
	"go.uber.org/zap"
)

// ErrNotFound is returned when an archived object does not exist
var ErrNotFound = errors.New("object not found")

// Storage persists named result documents (sync archives)
type Storage interface {
	Upload(ctx context.Context, name string, contentType string, data io.Reader) (string, int64, error)
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, storagePath string) error
}

// NewStorage creates a new storage instance based on configuration.
// For local mode, documents are written below LocalBasePath.
// For cloud/azure mode, documents are stored in Azure Blob Storage.
// Mode "none" discards everything.
func NewStorage(cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Mode {
	case "none", "":
		return DiscardStorage{}, nil
	case "local":
		return NewLocalStorage(cfg.LocalBasePath)
	case "cloud", "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobStorage(cfg.CloudConnectionString, cfg.CloudContainer, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// cleanName keeps only the base name so callers cannot escape the archive root
func cleanName(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return base, nil
}

// LocalStorage implements Storage interface for local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Upload writes a document under its own name, replacing any previous version
func (s *LocalStorage) Upload(ctx context.Context, name string, contentType string, data io.Reader) (string, int64, error) {
	storagePath, err := cleanName(name)
	if err != nil {
		return "", 0, err
	}
	fullPath := filepath.Join(s.basePath, storagePath)

	// write to a temp file first so pollers never see a partial archive
	tmp, err := os.CreateTemp(s.basePath, storagePath+".*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(tmp, data)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("failed to move file into place: %w", err)
	}

	return storagePath, size, nil
}

// Download opens a stored document
func (s *LocalStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	name, err := cleanName(storagePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.basePath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Delete deletes a document from local storage
func (s *LocalStorage) Delete(ctx context.Context, storagePath string) error {
	name, err := cleanName(storagePath)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.basePath, name)); err != nil {
		if os.IsNotExist(err) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// DiscardStorage accepts and drops every document
type DiscardStorage struct{}

func (DiscardStorage) Upload(ctx context.Context, name string, contentType string, data io.Reader) (string, int64, error) {
	n, err := io.Copy(io.Discard, data)
	return name, n, err
}

func (DiscardStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotFound, storagePath)
}

func (DiscardStorage) Delete(ctx context.Context, storagePath string) error {
	return nil
}
