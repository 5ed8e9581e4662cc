package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brasul/fretes/internal/config"
	"brasul/fretes/internal/email"
	"brasul/fretes/internal/store"
)

func TestOpenStore_Memory(t *testing.T) {
	cfg := &config.Config{StoreDriver: config.StoreDriverMemory}

	st, err := openStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, st)
	assert.NoError(t, st.Close(context.Background()))
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := &config.Config{StoreDriver: "sqlite"}

	_, err := openStore(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestBuildEmailSender_WritesFileCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.log")
	cfg := &config.Config{
		SmtpFromAddress: "noreply@fretes.test",
		LogEmailsPath:   path,
	}

	sender := buildEmailSender(cfg, nil, zap.NewNop())
	require.IsType(t, &email.CompositeEmailSender{}, sender)

	err := sender.Send(context.Background(), []string{"agente@fretes.test"}, "Bem-vindo", []byte("Subject: Bem-vindo\r\n\r\nOla"))
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "agente@fretes.test")
}
