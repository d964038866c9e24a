package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"helpmarket_backend/internal/config"
	"helpmarket_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 最小的 PNG 文件头，足以被识别为 image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newLocalStorage(t *testing.T) (*StorageService, string) {
	t.Helper()
	dir := t.TempDir()
	return &StorageService{
		Provider: &LocalStorageProvider{Config: &config.StorageConfig{Type: util.StorageLocal, LocalPath: dir}},
		Upload:   config.UploadConfig{MaxImageBytes: 1 << 10, MaxImageWidth: 100},
	}, dir
}

func TestUploadImageValidation(t *testing.T) {
	s, _ := newLocalStorage(t)
	ctx := context.Background()

	_, err := s.UploadImage(ctx, 1, "a.png", bytes.NewReader(pngHeader), 4096)
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	_, err = s.UploadImage(ctx, 1, "a.exe", bytes.NewReader(pngHeader), int64(len(pngHeader)))
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	text := []byte("isto não é uma imagem")
	_, err = s.UploadImage(ctx, 1, "a.png", bytes.NewReader(text), int64(len(text)))
	assert.Equal(t, util.KindValidation, util.KindOf(err))
}

func TestUploadImageResize(t *testing.T) {
	s, dir := newLocalStorage(t)
	var resized []string
	s.widthOf = func(string) (int, error) { return 400, nil }
	s.resize = func(src, dst string, maxWidth int) error {
		resized = append(resized, src)
		assert.Equal(t, 100, maxWidth)
		return os.WriteFile(dst, []byte("resized"), 0644)
	}

	url, err := s.UploadImage(context.Background(), 7, "Foto.PNG", bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/images/7/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)
	assert.Len(t, resized, 1)

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "resized", string(stored))
}

func TestUploadImageKeepsOriginal(t *testing.T) {
	t.Run("narrow image", func(t *testing.T) {
		s, dir := newLocalStorage(t)
		s.widthOf = func(string) (int, error) { return 50, nil }
		s.resize = func(src, dst string, maxWidth int) error {
			t.Fatal("resize should not be called")
			return nil
		}
		url, err := s.UploadImage(context.Background(), 1, "a.png", bytes.NewReader(pngHeader), int64(len(pngHeader)))
		require.NoError(t, err)
		stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
		require.NoError(t, err)
		assert.Equal(t, pngHeader, stored)
	})

	t.Run("resize failure", func(t *testing.T) {
		s, dir := newLocalStorage(t)
		s.widthOf = func(string) (int, error) { return 0, errors.New("no ffprobe") }
		s.resize = func(src, dst string, maxWidth int) error { return errors.New("no ffmpeg") }
		url, err := s.UploadImage(context.Background(), 1, "a.png", bytes.NewReader(pngHeader), int64(len(pngHeader)))
		require.NoError(t, err)
		stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
		require.NoError(t, err)
		assert.Equal(t, pngHeader, stored)
	})
}
