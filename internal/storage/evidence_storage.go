package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// EvidenceStorage отвечает за файловое хранилище фотодоказательств
// по спорам. Принимаются только изображения, тип определяется по
// magic-байтам, а не по расширению.
type EvidenceStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// NewEvidenceStorage создаёт файловое хранилище.
func NewEvidenceStorage(rootPath string, maxUploadMB int64) (*EvidenceStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &EvidenceStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save сохраняет фотодоказательство и возвращает относительный путь.
func (s *EvidenceStorage) Save(ctx context.Context, disputeID uuid.UUID, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	limited := io.LimitedReader{R: r, N: s.maxUploadBytes + 1}
	content, err := io.ReadAll(&limited)
	if err != nil {
		return "", 0, fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	if int64(len(content)) > s.maxUploadBytes {
		return "", 0, fmt.Errorf("storage: размер файла превышает лимит %d байт", s.maxUploadBytes)
	}

	kind, err := filetype.Match(content)
	if err != nil || !filetype.IsImage(content) {
		return "", 0, fmt.Errorf("storage: доказательством может быть только изображение")
	}

	disputeDir := filepath.Join(s.rootPath, disputeID.String())
	if err := os.MkdirAll(disputeDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать каталог спора: %w", err)
	}

	fileName := fmt.Sprintf("%d.%s", time.Now().UnixNano(), kind.Extension)
	targetPath := filepath.Join(disputeDir, fileName)
	tempPath := targetPath + ".tmp"

	if err := os.WriteFile(tempPath, content, 0o644); err != nil {
		return "", 0, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return filepath.Join(disputeID.String(), fileName), int64(len(content)), nil
}

// Delete удаляет файл из хранилища.
func (s *EvidenceStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.rootPath, filepath.Clean(relativePath))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// Open открывает сохранённый файл для чтения.
func (s *EvidenceStorage) Open(relativePath string) (*os.File, error) {
	return os.Open(filepath.Join(s.rootPath, filepath.Clean(relativePath)))
}
