package email

import "context"

// Provider отправляет письма
type Provider interface {
	Send(ctx context.Context, email *Email) error

	// SendTemplate рендерит шаблон и отправляет результат как HTML
	SendTemplate(ctx context.Context, to []string, subject, templateName string, data TemplateData) error

	Close() error
}

// TemplateRenderer рендерит шаблоны писем
type TemplateRenderer interface {
	Render(templateName string, data TemplateData) (string, error)
}
