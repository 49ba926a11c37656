package email

import (
	"fmt"
	"html/template"
	"strings"
	"sync"
)

var builtinTemplates = map[string]string{
	TemplateWelcome: `<p>Hello, {{.Name}}!</p>
<p>Your NutriPlan account is ready. Pick a subscription plan to unlock more daily nutrition plans.</p>`,

	TemplateSubscriptionApproved: `<p>Hello, {{.Name}}!</p>
<p>Your subscription to <b>{{.PlanName}}</b> has been approved.</p>
<p>Amount: {{printf "%.2f" .Amount}} {{.Currency}}. Valid until {{.EndDate}}.</p>
<p>Sign in again to apply the new plan limits.</p>`,

	TemplateSubscriptionRejected: `<p>Hello, {{.Name}}!</p>
<p>Your request for <b>{{.PlanName}}</b> was rejected.</p>
{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}`,
}

// TemplateManager хранит распарсенные шаблоны
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает менеджер со встроенными шаблонами
func NewTemplateManager() (*TemplateManager, error) {
	tm := &TemplateManager{templates: make(map[string]*template.Template)}
	for name, body := range builtinTemplates {
		if err := tm.AddTemplate(name, body); err != nil {
			return nil, err
		}
	}
	return tm, nil
}

func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

func (tm *TemplateManager) AddTemplate(name, body string) error {
	tpl, err := template.New(name).Option("missingkey=zero").Parse(body)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()
	return nil
}
