package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Storage - зеркало пользовательских фотографий вне БД.
// Источник истины всегда user_photos; хранилище только раздает файлы.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	// Remove не считает ошибкой отсутствие ключа
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

type Config struct {
	Type       string // database | local | cloudflare_r2
	BasePath   string
	BaseURL    string
	Bucket     string
	Region     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PublicRead bool
}

// NewStorage: для "database" (и пустого типа) зеркала нет, возвращается nil.
func NewStorage(cfg Config) (Storage, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "database":
		return nil, nil
	case "local":
		return NewLocalStorage(cfg)
	case "cloudflare_r2", "r2":
		return NewCloudflareR2Storage(cfg)
	}
	return nil, fmt.Errorf("storage: unknown type %q", cfg.Type)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
