package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorage(t *testing.T) {
	s, err := NewStorage(Config{Type: "database"})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = NewStorage(Config{})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewStorage(Config{Type: "ftp"})
	assert.Error(t, err)

	_, err = NewStorage(Config{Type: "cloudflare_r2", Bucket: "photos"})
	assert.Error(t, err, "без endpoint")

	r2, err := NewStorage(Config{Type: "cloudflare_r2", Bucket: "photos", Endpoint: "https://acc.r2.cloudflarestorage.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://photos.r2.dev/u1/a.jpg", r2.URL("u1/a.jpg"))
}

func TestLocalStorage_PutRemove(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStorage(Config{BasePath: root, BaseURL: "https://cdn.example.com/"})
	require.NoError(t, err)

	key := "photos/u1/avatar.jpg"
	require.NoError(t, s.Put(ctx, key, strings.NewReader("jpeg-bytes"), "image/jpeg"))

	data, err := os.ReadFile(filepath.Join(root, key))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "https://cdn.example.com/photos/u1/avatar.jpg", s.URL(key))

	// временных файлов не остается
	entries, err := os.ReadDir(filepath.Join(root, "photos/u1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, s.Remove(ctx, key))
	require.NoError(t, s.Remove(ctx, key), "повторное удаление не ошибка")
	_, err = os.Stat(filepath.Join(root, key))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorage_KeyCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(Config{BasePath: root})
	require.NoError(t, err)

	p, err := s.resolve("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, root))

	_, err = s.resolve("")
	assert.Error(t, err)
	assert.Equal(t, "/uploads/a.jpg", s.URL("a.jpg"))
}
