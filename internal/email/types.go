package email

// Email - одно письмо
type Email struct {
	From     string
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// TemplateData - данные для шаблонов писем
type TemplateData map[string]interface{}

// Имена встроенных шаблонов
const (
	TemplateWelcome              = "welcome"
	TemplateSubscriptionApproved = "subscription_approved"
	TemplateSubscriptionRejected = "subscription_rejected"
)
