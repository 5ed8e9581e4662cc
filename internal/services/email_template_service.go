package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"

	"brasul/fretes/internal/models"
)

// DefaultLocale is used when a task names no locale.
const DefaultLocale = "pt-BR"

// Default email templates, used when no override file provides one.
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplateAgentWelcome: {
		TemplateID: TemplateAgentWelcome,
		Locale:     DefaultLocale,
		Subject:    "Bem-vindo, agenciador {{.code}}",
		Body: "Olá, {{.name}}!\n\n" +
			"Seu cadastro de agenciador foi concluído. Seu código é {{.code}}.\n" +
			"Compartilhe os fretes com seu código para que os contatos sejam registrados em seu nome.",
	},
	TemplateReferralNotice: {
		TemplateID: TemplateReferralNotice,
		Locale:     DefaultLocale,
		Subject:    "Novo contato pelo seu código {{.code}}",
		Body: "Olá, {{.name}}!\n\n" +
			"Um motorista entrou em contato pelo frete {{.freight_id}} usando seu código {{.code}}.",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
}

// EmailTemplateService serves templates from an optional YAML file, falling
// back to the built-in defaults.
type EmailTemplateService struct {
	overrides map[string]models.EmailTemplate // by template_id + "/" + locale
}

// NewEmailTemplateService loads overrides from path. An empty path uses the
// defaults only.
func NewEmailTemplateService(path string) (*EmailTemplateService, error) {
	s := &EmailTemplateService{overrides: make(map[string]models.EmailTemplate)}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read email templates: %w", err)
	}
	var list []models.EmailTemplate
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	for _, t := range list {
		if t.Locale == "" {
			t.Locale = DefaultLocale
		}
		s.overrides[t.TemplateID+"/"+t.Locale] = t
	}
	return s, nil
}

// GetTemplate retrieves an email template by ID and locale
func (s *EmailTemplateService) GetTemplate(_ context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	if t, ok := s.overrides[templateID+"/"+locale]; ok {
		return &t, nil
	}
	if t, ok := defaultEmailTemplates[templateID]; ok {
		return &t, nil
	}
	return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
}

// RenderTemplate executes the subject and body of t against data.
func RenderTemplate(t *models.EmailTemplate, data map[string]interface{}) (subject, body string, err error) {
	render := func(name, text string) (string, error) {
		tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	if subject, err = render(t.TemplateID+".subject", t.Subject); err != nil {
		return "", "", fmt.Errorf("failed to render subject of %s: %w", t.TemplateID, err)
	}
	if body, err = render(t.TemplateID+".body", t.Body); err != nil {
		return "", "", fmt.Errorf("failed to render body of %s: %w", t.TemplateID, err)
	}
	return subject, body, nil
}
