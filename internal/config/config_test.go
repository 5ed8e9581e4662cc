package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load("api")
	require.NoError(t, err)
	assert.Equal(t, "api", cfg.RunMode)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 30*24*time.Hour, cfg.FreightRetention)
	assert.Equal(t, "https://wa.me/", cfg.WhatsAppServiceURL)
	assert.Equal(t, "America/Sao_Paulo", cfg.Timezone.String())
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_Lists(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load("all")
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"postgres needs url", map[string]string{"STORE_DRIVER": "postgres", "DATABASE_URL": "", "JWT_SECRET": "s"}, "DATABASE_URL"},
		{"mongo needs uri", map[string]string{"STORE_DRIVER": "mongo", "MONGO_URI": "", "JWT_SECRET": "s"}, "MONGO_URI"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "sqlite", "JWT_SECRET": "s"}, "STORE_DRIVER"},
		{"missing secret", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": ""}, "JWT_SECRET"},
		{"bad page size", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "PAGE_SIZE": "lots"}, "PAGE_SIZE"},
		{"bad retention", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "FREIGHT_RETENTION_DAYS": "0"}, "FREIGHT_RETENTION_DAYS"},
		{"bad timezone", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "TIMEZONE": "Mars/Olympus"}, "TIMEZONE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("api")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
