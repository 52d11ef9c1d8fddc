package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitsum/internal/models"
)

func TestGenerateKey(t *testing.T) {
	t.Run("development prefix", func(t *testing.T) {
		key, err := GenerateKey(models.EnvDevelopment)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(key, "gitsum-dev-"))
		assert.Len(t, key, len("gitsum-dev-")+KeySuffixLen)
	})

	t.Run("production prefix", func(t *testing.T) {
		key, err := GenerateKey(models.EnvProduction)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(key, "gitsum-prod-"))
		assert.Len(t, key, len("gitsum-prod-")+KeySuffixLen)
	})

	t.Run("suffix is alphanumeric", func(t *testing.T) {
		key, err := GenerateKey(models.EnvDevelopment)
		require.NoError(t, err)

		suffix := strings.TrimPrefix(key, "gitsum-dev-")
		for _, c := range suffix {
			assert.Contains(t, keyAlphabet, string(c))
		}
	})

	t.Run("keys are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			key, err := GenerateKey(models.EnvDevelopment)
			require.NoError(t, err)
			assert.False(t, seen[key], "generated a duplicate credential")
			seen[key] = true
		}
	})
}

func TestRewritePrefix(t *testing.T) {
	t.Run("dev to prod", func(t *testing.T) {
		got := RewritePrefix("gitsum-dev-abc123", models.EnvDevelopment, models.EnvProduction)
		assert.Equal(t, "gitsum-prod-abc123", got)
	})

	t.Run("prod to dev", func(t *testing.T) {
		got := RewritePrefix("gitsum-prod-abc123", models.EnvProduction, models.EnvDevelopment)
		assert.Equal(t, "gitsum-dev-abc123", got)
	})

	t.Run("foreign prefix left alone", func(t *testing.T) {
		got := RewritePrefix("sk-whatever", models.EnvDevelopment, models.EnvProduction)
		assert.Equal(t, "sk-whatever", got)
	})
}
