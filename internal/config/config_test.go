package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("COOKIE_SECRET", "cookie-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "auth_token", cfg.CookieName)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 60*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAIModel)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.ArchiveEnabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_MissingSecrets(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing jwt secret",
			env:  map[string]string{"COOKIE_SECRET": "cookie"},
		},
		{
			name: "missing cookie secret",
			env:  map[string]string{"JWT_SECRET": "jwt"},
		},
		{
			name: "empty jwt secret",
			env:  map[string]string{"JWT_SECRET": "", "COOKIE_SECRET": "cookie"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
			// t.Setenv restores the previous value; unset explicitly for this test.
			t.Setenv("JWT_SECRET", "")
			t.Setenv("COOKIE_SECRET", "")
			os.Unsetenv("JWT_SECRET")
			os.Unsetenv("COOKIE_SECRET")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name:    "unknown store driver",
			env:     map[string]string{"STORE_DRIVER": "cassandra"},
			wantErr: true,
		},
		{
			name:    "mongo store driver",
			env:     map[string]string{"STORE_DRIVER": "mongo"},
			wantErr: false,
		},
		{
			name:    "negative history window",
			env:     map[string]string{"CHAT_HISTORY_WINDOW": "-1"},
			wantErr: true,
		},
		{
			name:    "minio without credentials",
			env:     map[string]string{"MINIO_ENDPOINT": "localhost:9000"},
			wantErr: true,
		},
		{
			name: "minio with credentials",
			env: map[string]string{
				"MINIO_ENDPOINT":   "localhost:9000",
				"MINIO_ACCESS_KEY": "access",
				"MINIO_SECRET_KEY": "secret",
			},
			wantErr: false,
		},
		{
			name:    "zero completion timeout",
			env:     map[string]string{"COMPLETION_TIMEOUT": "0s"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "JWT_SECRET=from-file\nCOOKIE_SECRET=cookie-from-file\nPORT=7070\nALLOWED_ORIGINS=http://a.test,http://b.test\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("ENV_FILE", path)
	// Register cleanup for the keys the file sets; godotenv never overrides existing values.
	for _, k := range []string{"JWT_SECRET", "COOKIE_SECRET", "PORT", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}
