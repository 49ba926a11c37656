package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"nutriplan_backend/internal/imageprocessor"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/internal/storage"
	"nutriplan_backend/internal/testutil"
	"nutriplan_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newPhotoService(store storage.Storage) *PhotoServiceImpl {
	return NewPhotoService(
		repositories.NewUserPhotoRepository(),
		imageprocessor.NewProcessor(85, 100),
		store,
		PhotoLimits{MaxSize: 1 << 20, AllowedTypes: []string{"image/jpeg", "image/png"}},
	)
}

func TestPhotoService_UploadDownscalesAndReplaces(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newPhotoService(nil)
	user := testutil.CreateUser(t, db, "photo@test.com", "password1")

	resp, err := svc.UploadPhoto(db, user.ID, &dto.UploadPhotoRequest{
		FileName:    "../../avatar.png",
		ContentType: "image/png",
		Data:        pngBytes(t, 400, 200),
	})
	require.NoError(t, err)
	assert.Equal(t, "avatar.png", resp.FileName)
	assert.Equal(t, "image/png", resp.ContentType)
	assert.Equal(t, 100, resp.Width)
	assert.Equal(t, 50, resp.Height)
	assert.Empty(t, resp.URL)

	_, err = svc.UploadPhoto(db, user.ID, &dto.UploadPhotoRequest{FileName: "small.png", Data: pngBytes(t, 20, 10)})
	require.NoError(t, err)

	photo, err := svc.GetPhoto(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "small.png", photo.FileName)
	assert.Equal(t, 20, photo.Width, "маленькие изображения не увеличиваются")
	assert.NotEmpty(t, photo.Data)

	require.NoError(t, svc.DeletePhoto(db, user.ID))
	_, err = svc.GetPhoto(db, user.ID)
	assert.ErrorIs(t, err, apperrors.ErrPhotoNotFound)
	assert.ErrorIs(t, svc.DeletePhoto(db, user.ID), apperrors.ErrPhotoNotFound)
}

func TestPhotoService_Validation(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "bad@test.com", "password1")

	svc := newPhotoService(nil)
	_, err := svc.UploadPhoto(db, user.ID, &dto.UploadPhotoRequest{FileName: "a.txt", Data: []byte("plain text, not an image")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidFileType)

	svc.limits.MaxSize = 10
	_, err = svc.UploadPhoto(db, user.ID, &dto.UploadPhotoRequest{FileName: "big.png", Data: pngBytes(t, 10, 10)})
	assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)

	_, err = svc.UploadPhoto(db, user.ID, &dto.UploadPhotoRequest{FileName: "empty.png"})
	assert.Error(t, err)
}

func TestPhotoService_RejectsOversizedCanvas(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "canvas@test.com", "password1")

	svc := newPhotoService(nil)
	svc.processor = imageprocessor.NewProcessor(85, 100).WithMaxPixels(30 * 30)

	_, err := svc.UploadPhoto(db, user.ID, &dto.UploadPhotoRequest{FileName: "wide.png", Data: pngBytes(t, 40, 40)})
	assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)
	assert.ErrorIs(t, err, imageprocessor.ErrTooManyPixels)

	_, err = svc.GetPhoto(db, user.ID)
	assert.ErrorIs(t, err, apperrors.ErrPhotoNotFound)
}

func TestPhotoService_MirrorsToStorage(t *testing.T) {
	db := testutil.NewTestDB(t)
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(storage.Config{BasePath: dir, BaseURL: "/uploads"})
	require.NoError(t, err)

	svc := newPhotoService(store)
	user := testutil.CreateUser(t, db, "mirror@test.com", "password1")

	first, err := svc.UploadPhoto(db, user.ID, &dto.UploadPhotoRequest{FileName: "a.png", Data: pngBytes(t, 30, 30)})
	require.NoError(t, err)
	require.NotEmpty(t, first.URL)

	photo, err := svc.GetPhoto(db, user.ID)
	require.NoError(t, err)
	firstKey := photo.StorageKey
	_, err = os.Stat(filepath.Join(dir, firstKey))
	require.NoError(t, err)

	_, err = svc.UploadPhoto(db, user.ID, &dto.UploadPhotoRequest{FileName: "b.png", Data: pngBytes(t, 30, 30)})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, firstKey))
	assert.True(t, os.IsNotExist(err), "старая копия удаляется")

	photo, err = svc.GetPhoto(db, user.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeletePhoto(db, user.ID))
	_, err = os.Stat(filepath.Join(dir, photo.StorageKey))
	assert.True(t, os.IsNotExist(err))
}
