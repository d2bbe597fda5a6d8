package secrets

import (
	"context"
	"errors"
	"os"
	"strings"

	"licenseguard/backend/pkg/config"
	"licenseguard/backend/pkg/logger"
)

// Manager provides access to secrets from various sources
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)

	// GetSecretWithDefault retrieves a secret with a default value if not found
	GetSecretWithDefault(ctx context.Context, key, defaultValue string) string
}

// ErrSecretNotFound is returned when no source has the key
var ErrSecretNotFound = errors.New("secret not found")

// Keys of the secrets the backend resolves at startup
const (
	KeyJWTSecret      = "jwt_secret"
	KeyDBPassword     = "db_password"
	KeyOpenAIKey      = "openai_api_key"
	KeyAnalysisAPIKey = "analysis_api_key"
	KeyMinioSecret    = "minio_secret_key"
)

// NewManager returns a Vault backed manager when Vault is enabled and an
// environment manager otherwise
func NewManager(cfg *config.Config, log *logger.Logger) (Manager, error) {
	if !cfg.Vault.Enabled {
		return EnvManager{}, nil
	}
	return NewVaultManager(VaultConfig{
		Address: cfg.Vault.Address,
		Token:   cfg.Vault.Token,
		Mount:   cfg.Vault.Mount,
		Path:    cfg.Vault.Path,
		TTL:     cfg.Cache.TTL,
	}, log)
}

// EnvManager reads secrets from environment variables: jwt_secret is JWT_SECRET
type EnvManager struct{}

func envKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

func (EnvManager) GetSecret(ctx context.Context, key string) (string, error) {
	value := os.Getenv(envKey(key))
	if value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

func (m EnvManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		return defaultValue
	}
	return value
}

// Apply overrides the credential fields of cfg with the values held by m.
// Fields keep their configured value when m has no entry.
func Apply(ctx context.Context, m Manager, cfg *config.Config) {
	cfg.JWT.Secret = m.GetSecretWithDefault(ctx, KeyJWTSecret, cfg.JWT.Secret)
	cfg.Database.Password = m.GetSecretWithDefault(ctx, KeyDBPassword, cfg.Database.Password)
	cfg.Analysis.OpenAIKey = m.GetSecretWithDefault(ctx, KeyOpenAIKey, cfg.Analysis.OpenAIKey)
	cfg.Analysis.APIKey = m.GetSecretWithDefault(ctx, KeyAnalysisAPIKey, cfg.Analysis.APIKey)
	cfg.Storage.SecretKey = m.GetSecretWithDefault(ctx, KeyMinioSecret, cfg.Storage.SecretKey)
}
