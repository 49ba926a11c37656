package dto

import (
	"encoding/json"
	"time"

	"nutriplan_backend/internal/models"
)

type CreateProviderRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Category    string   `json:"category" validate:"required,max=100"`
	Description string   `json:"description" validate:"omitempty,max=4000"`
	Phone       string   `json:"phone" validate:"omitempty,max=32"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Website     string   `json:"website" validate:"omitempty,url"`
	Address     string   `json:"address" validate:"required,max=500"`
	City        string   `json:"city" validate:"required,max=100"`
	Latitude    *float64 `json:"latitude" validate:"required,latitude"`
	Longitude   *float64 `json:"longitude" validate:"required,longitude"`
	Tags        []string `json:"tags" validate:"omitempty,dive,max=50"`
	IsActive    *bool    `json:"is_active"`
}

type UpdateProviderRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Category    *string  `json:"category" validate:"omitempty,min=1,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=4000"`
	Phone       *string  `json:"phone" validate:"omitempty,max=32"`
	Email       *string  `json:"email" validate:"omitempty,email"`
	Website     *string  `json:"website" validate:"omitempty,url"`
	Address     *string  `json:"address" validate:"omitempty,min=1,max=500"`
	City        *string  `json:"city" validate:"omitempty,min=1,max=100"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
	Tags        []string `json:"tags" validate:"omitempty,dive,max=50"`
	IsActive    *bool    `json:"is_active"`
}

type ListProvidersQuery struct {
	PageQuery
	City     string `form:"city" validate:"omitempty,max=100"`
	Category string `form:"category" validate:"omitempty,max=100"`
	Search   string `form:"search" validate:"omitempty,max=100"`
}

type NearbyProvidersQuery struct {
	Latitude  *float64 `form:"lat" validate:"required,latitude"`
	Longitude *float64 `form:"lng" validate:"required,longitude"`
	RadiusKm  float64  `form:"radius_km" validate:"omitempty,gt=0,lte=500"`
	Category  string   `form:"category" validate:"omitempty,max=100"`
	Limit     int      `form:"limit" validate:"omitempty,gte=1,lte=100"`
}

type ProviderResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Website     string    `json:"website,omitempty"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Tags        []string  `json:"tags"`
	IsActive    bool      `json:"is_active"`
	DistanceKm  *float64  `json:"distance_km,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewProviderResponse(p *models.ServiceProvider) ProviderResponse {
	tags := []string{}
	if len(p.Tags) > 0 {
		_ = json.Unmarshal(p.Tags, &tags)
	}
	return ProviderResponse{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		Phone:       p.Phone,
		Email:       p.Email,
		Website:     p.Website,
		Address:     p.Address,
		City:        p.City,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		Tags:        tags,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
	}
}
