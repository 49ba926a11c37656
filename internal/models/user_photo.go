package models

// UserPhoto - фото профиля. Байты лежат в БД, копия в объектном
// хранилище опциональна (StorageKey/URL).
type UserPhoto struct {
	BaseModel
	UserID      string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	FileName    string `json:"file_name"`
	ContentType string `gorm:"type:varchar(50);not null" json:"content_type"`
	Size        int64  `json:"size"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Data        []byte `gorm:"not null" json:"-"`
	StorageKey  string `json:"-"`
	URL         string `json:"url,omitempty"`
}
