package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailTemplateService_Defaults(t *testing.T) {
	svc, err := NewEmailTemplateService("")
	require.NoError(t, err)

	tmpl, err := svc.GetTemplate(context.Background(), TemplateAgentWelcome, DefaultLocale)
	require.NoError(t, err)

	subject, body, err := RenderTemplate(tmpl, map[string]interface{}{"name": "Ana", "code": "10001"})
	require.NoError(t, err)
	assert.Equal(t, "Bem-vindo, agenciador 10001", subject)
	assert.Contains(t, body, "Olá, Ana!")
	assert.Contains(t, body, "Seu código é 10001.")

	_, err = svc.GetTemplate(context.Background(), "unknown", DefaultLocale)
	assert.Error(t, err)
}

func TestEmailTemplateService_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := "- template_id: referral_notice\n  subject: \"Contato {{.code}}\"\n  body: \"Frete {{.freight_id}}\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	svc, err := NewEmailTemplateService(path)
	require.NoError(t, err)

	tmpl, err := svc.GetTemplate(context.Background(), TemplateReferralNotice, DefaultLocale)
	require.NoError(t, err)
	subject, body, err := RenderTemplate(tmpl, map[string]interface{}{"code": "10001", "freight_id": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "Contato 10001", subject)
	assert.Equal(t, "Frete abc", body)

	// other locales still fall back to the default
	tmpl, err = svc.GetTemplate(context.Background(), TemplateReferralNotice, "en-US")
	require.NoError(t, err)
	assert.Contains(t, tmpl.Subject, "Novo contato")
}
