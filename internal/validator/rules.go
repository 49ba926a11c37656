package validator

import (
	"fmt"
	"time"

	"nutriplan_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// stringRule - проверка строкового поля. Пустое значение пропускается:
// за обязательность отвечает тег required.
type stringRule func(value string) bool

func (r stringRule) asFunc() validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == "" || r(value)
	}
}

var customRules = map[string]stringRule{
	"is-subscription-status": func(v string) bool { return models.SubscriptionStatus(v).IsValid() },
	"is-chat-status":         func(v string) bool { return models.ChatMessageStatus(v).IsValid() },
	"is-role-name":           func(v string) bool { return v == models.RoleUser || v == models.RoleAdmin },
	"is-plan-date":           isPlanDate,
	"is-currency":            isCurrencyCode,
}

func registerCustomRules(v *validator.Validate) {
	for tag, rule := range customRules {
		if err := v.RegisterValidation(tag, rule.asFunc()); err != nil {
			panic(fmt.Sprintf("validator: register %q: %v", tag, err))
		}
	}
}

func isPlanDate(value string) bool {
	_, err := time.Parse(models.DateLayout, value)
	return err == nil
}

// isCurrencyCode - ISO 4217, три заглавные латинские буквы
func isCurrencyCode(value string) bool {
	if len(value) != 3 {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 'A' || value[i] > 'Z' {
			return false
		}
	}
	return true
}
