package handlers

import (
	"io"
	"net/http"
	"strconv"

	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/services"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type PhotoHandler struct {
	*BaseHandler
	photoService services.PhotoService
	maxSize      int64
}

// NewPhotoHandler - maxSize ограничивает чтение multipart-файла
func NewPhotoHandler(base *BaseHandler, photoService services.PhotoService, maxSize int64) *PhotoHandler {
	return &PhotoHandler{
		BaseHandler:  base,
		photoService: photoService,
		maxSize:      maxSize,
	}
}

func (h *PhotoHandler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users", h.Authenticated()...)
	{
		users.POST("/me/photo", h.UploadPhoto)
		users.GET("/me/photo", h.GetMyPhoto)
		users.DELETE("/me/photo", h.DeletePhoto)
		users.GET("/:id/photo", h.GetUserPhoto)
	}
}

// UploadPhoto godoc
// @Summary Загрузить фото профиля
// @Description Заменяет текущее фото. Изображение уменьшается до максимального размера стороны.
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param photo formData file true "Изображение"
// @Success 201 {object} dto.PhotoResponse
// @Failure 413 {object} apperrors.ErrorResponse "Файл слишком большой"
// @Failure 415 {object} apperrors.ErrorResponse "Недопустимый тип"
// @Router /users/me/photo [post]
func (h *PhotoHandler) UploadPhoto(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Multipart field 'photo' is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	defer file.Close()

	// лишний байт нужен, чтобы сервис увидел превышение лимита
	reader := io.Reader(file)
	if h.maxSize > 0 {
		reader = io.LimitReader(file, h.maxSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		logger.CtxWithError(c.Request.Context(), "failed to read uploaded photo", err)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Failed to read uploaded file"))
		return
	}

	photo, err := h.photoService.UploadPhoto(h.GetDB(c), userID, &dto.UploadPhotoRequest{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, photo)
}

func (h *PhotoHandler) GetMyPhoto(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	h.writePhoto(c, userID)
}

func (h *PhotoHandler) GetUserPhoto(c *gin.Context) {
	h.writePhoto(c, c.Param("id"))
}

func (h *PhotoHandler) writePhoto(c *gin.Context, userID string) {
	photo, err := h.photoService.GetPhoto(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.Header("Last-Modified", photo.UpdatedAt.UTC().Format(http.TimeFormat))
	c.Header("X-Image-Width", strconv.Itoa(photo.Width))
	c.Header("X-Image-Height", strconv.Itoa(photo.Height))
	c.Data(http.StatusOK, photo.ContentType, photo.Data)
}

func (h *PhotoHandler) DeletePhoto(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.photoService.DeletePhoto(h.GetDB(c), userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
