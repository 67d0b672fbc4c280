package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Минимальный валидный PNG: сигнатура плюс пустые чанки.
var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00,
}

func TestEvidenceStorage_SaveAndOpen(t *testing.T) {
	store, err := NewEvidenceStorage(t.TempDir(), 1)
	require.NoError(t, err)

	disputeID := uuid.New()
	relPath, size, err := store.Save(context.Background(), disputeID, bytes.NewReader(pngBytes))

	require.NoError(t, err)
	assert.Equal(t, int64(len(pngBytes)), size)
	assert.True(t, strings.HasPrefix(relPath, disputeID.String()+string(filepath.Separator)))
	assert.True(t, strings.HasSuffix(relPath, ".png"))

	f, err := store.Open(relPath)
	require.NoError(t, err)
	defer f.Close()

	stat, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(len(pngBytes)), stat.Size())
}

func TestEvidenceStorage_RejectsNonImage(t *testing.T) {
	store, err := NewEvidenceStorage(t.TempDir(), 1)
	require.NoError(t, err)

	_, _, err = store.Save(context.Background(), uuid.New(), strings.NewReader("просто текст, а не изображение"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "изображение")
}

func TestEvidenceStorage_RejectsOversized(t *testing.T) {
	root := t.TempDir()
	store, err := NewEvidenceStorage(root, 1)
	require.NoError(t, err)
	store.maxUploadBytes = int64(len(pngBytes)) - 1

	_, _, err = store.Save(context.Background(), uuid.New(), bytes.NewReader(pngBytes))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "лимит")
}

func TestEvidenceStorage_Delete(t *testing.T) {
	root := t.TempDir()
	store, err := NewEvidenceStorage(root, 1)
	require.NoError(t, err)

	relPath, _, err := store.Save(context.Background(), uuid.New(), bytes.NewReader(pngBytes))
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), relPath))

	_, err = os.Stat(filepath.Join(root, relPath))
	assert.True(t, os.IsNotExist(err))

	// Повторное удаление не считается ошибкой.
	assert.NoError(t, store.Delete(context.Background(), relPath))
}

func TestEvidenceStorage_CancelledContext(t *testing.T) {
	store, err := NewEvidenceStorage(t.TempDir(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = store.Save(ctx, uuid.New(), bytes.NewReader(pngBytes))
	assert.ErrorIs(t, err, context.Canceled)
}
