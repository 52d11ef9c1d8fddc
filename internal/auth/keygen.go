package auth

import (
	"crypto/rand"
	"fmt"
	"strings"

	"gitsum/internal/models"
)

// Credential format: gitsum-<env>-<24 alphanumeric chars>
// Example: gitsum-dev-Jx7Qp2RtLm9KcVb4Wn8ZaYd3
//
// 24 characters over a 62-symbol alphabet is ~142 bits of entropy. The
// prefix is advisory only; validity is decided by store lookup.
const (
	keyAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	KeySuffixLen = 24
)

// KeyPrefix returns the credential prefix for an environment class.
func KeyPrefix(env models.Environment) string {
	return "gitsum-" + env.Short() + "-"
}

// GenerateKey creates a fresh credential for the given environment class.
func GenerateKey(env models.Environment) (string, error) {
	suffix, err := randomString(KeySuffixLen)
	if err != nil {
		return "", fmt.Errorf("generate credential: %w", err)
	}
	return KeyPrefix(env) + suffix, nil
}

// RewritePrefix swaps the advisory prefix of a credential from one
// environment class to another, leaving the random suffix intact. Keys
// that do not carry the old prefix are returned unchanged.
func RewritePrefix(key string, from, to models.Environment) string {
	old := KeyPrefix(from)
	if !strings.HasPrefix(key, old) {
		return key
	}
	return KeyPrefix(to) + strings.TrimPrefix(key, old)
}

// randomString draws n characters from keyAlphabet using rejection
// sampling so every symbol is equally likely.
func randomString(n int) (string, error) {
	// Largest multiple of len(keyAlphabet) below 256; bytes at or above
	// it are discarded to avoid modulo bias.
	const max = byte(248) // 62 * 4

	var sb strings.Builder
	sb.Grow(n)

	buf := make([]byte, n*2)
	for sb.Len() < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= max {
				continue
			}
			sb.WriteByte(keyAlphabet[int(b)%len(keyAlphabet)])
			if sb.Len() == n {
				break
			}
		}
	}

	return sb.String(), nil
}
