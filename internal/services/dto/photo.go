package dto

import (
	"time"

	"nutriplan_backend/internal/models"
)

// UploadPhotoRequest - уже прочитанный файл из multipart-формы
type UploadPhotoRequest struct {
	FileName    string
	ContentType string
	Data        []byte
}

type PhotoResponse struct {
	UserID      string    `json:"user_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	URL         string    `json:"url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewPhotoResponse(p *models.UserPhoto) PhotoResponse {
	return PhotoResponse{
		UserID:      p.UserID,
		FileName:    p.FileName,
		ContentType: p.ContentType,
		Size:        p.Size,
		Width:       p.Width,
		Height:      p.Height,
		URL:         p.URL,
		UpdatedAt:   p.UpdatedAt,
	}
}
