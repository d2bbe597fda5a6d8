package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"licenseguard/backend/pkg/config"
	"licenseguard/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeVault(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		if r.URL.Path != "/v1/secret/data/licenseguard" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": {
				"data": {"jwt_secret": "from-vault"},
				"metadata": {"created_time": "2024-01-01T00:00:00Z", "deletion_time": "", "destroyed": false, "version": 1}
			}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultManager(t *testing.T) {
	var calls int
	srv := fakeVault(t, &calls)
	t.Setenv("OPENAI_API_KEY", "from-env")

	m, err := NewVaultManager(VaultConfig{Address: srv.URL, Token: "test-token"}, logger.Discard())
	require.NoError(t, err)
	ctx := context.Background()

	value, err := m.GetSecret(ctx, KeyJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "from-vault", value)

	// cached
	_, err = m.GetSecret(ctx, KeyJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	value, err = m.GetSecret(ctx, KeyOpenAIKey)
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	_, err = m.GetSecret(ctx, KeyMinioSecret)
	assert.ErrorIs(t, err, ErrSecretNotFound)
	assert.Equal(t, "fallback", m.GetSecretWithDefault(ctx, KeyMinioSecret, "fallback"))
}

func TestNewVaultManager_RequiresSettings(t *testing.T) {
	_, err := NewVaultManager(VaultConfig{Token: "t"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultAddress)

	_, err = NewVaultManager(VaultConfig{Address: "http://127.0.0.1:8200"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultToken)
}

func TestApply(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("DB_PASSWORD", "")

	cfg := &config.Config{}
	cfg.JWT.Secret = "configured"
	cfg.Database.Password = "db-configured"

	m, err := NewManager(cfg, logger.Discard())
	require.NoError(t, err)
	Apply(context.Background(), m, cfg)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "db-configured", cfg.Database.Password)
}
