package models

import "gorm.io/datatypes"

type ServiceProvider struct {
	BaseModel
	Name        string         `gorm:"type:varchar(200);not null" json:"name"`
	Category    string         `gorm:"type:varchar(100);index" json:"category"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Email       string         `json:"email,omitempty"`
	Website     string         `json:"website,omitempty"`
	Address     string         `gorm:"not null" json:"address"`
	City        string         `gorm:"type:varchar(100);index" json:"city"`
	Latitude    float64        `gorm:"not null;index:idx_providers_location,priority:1" json:"latitude"`
	Longitude   float64        `gorm:"not null;index:idx_providers_location,priority:2" json:"longitude"`
	Tags        datatypes.JSON `json:"tags,omitempty"`
	IsActive    bool           `gorm:"not null" json:"is_active"`
}
