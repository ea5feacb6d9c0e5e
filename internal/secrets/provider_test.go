package secrets_test

import (
	"context"
	"testing"

	"github.com/straye-as/opportunity-sync/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAccountKeyName(t *testing.T) {
	assert.Equal(t, "account-abc123-api-key", secrets.AccountKeyName("ABC123"))
	assert.Equal(t, "account-x-api-key", secrets.AccountKeyName(" x "))
}

func TestProvider_AutoResolvesEnvironmentInDevelopment(t *testing.T) {
	p, err := secrets.NewProvider(&secrets.ProviderConfig{Source: secrets.SourceAuto, Environment: "development"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, secrets.SourceEnvironment, p.Source())
	assert.False(t, p.IsVaultEnabled())
}

func TestProvider_VaultRequiresName(t *testing.T) {
	_, err := secrets.NewProvider(&secrets.ProviderConfig{Source: secrets.SourceVault}, zap.NewNop())
	assert.Error(t, err)
}

func TestProvider_GetSecretOrEnvWithDefault(t *testing.T) {
	p, err := secrets.NewProvider(&secrets.ProviderConfig{Source: secrets.SourceEnvironment}, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("env override wins", func(t *testing.T) {
		t.Setenv("ACCOUNT_A1_API_KEY", "from-env")
		assert.Equal(t, "from-env", p.GetSecretOrEnvWithDefault(ctx, secrets.AccountKeyName("a1"), "ACCOUNT_A1_API_KEY", "fallback"))
	})

	t.Run("default when nothing is set", func(t *testing.T) {
		assert.Equal(t, "fallback", p.GetSecretOrEnvWithDefault(ctx, secrets.AccountKeyName("zz"), "ACCOUNT_ZZ_API_KEY_UNSET", "fallback"))
	})
}
