package models

import (
	"time"

	"github.com/google/uuid"
)

// Environment is the class an API key is issued for. It drives the
// credential prefix and nothing else; validity is decided by store lookup.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ParseEnvironment maps the wire values ("dev"/"prod" and their long forms)
// to an Environment.
func ParseEnvironment(s string) (Environment, bool) {
	switch s {
	case "dev", "development":
		return EnvDevelopment, true
	case "prod", "production":
		return EnvProduction, true
	}
	return "", false
}

// Short returns the wire form used in JSON payloads and key prefixes.
func (e Environment) Short() string {
	if e == EnvProduction {
		return "prod"
	}
	return "dev"
}

// APIKey is a bearer credential owned by exactly one user. The Key column
// is the credential itself and is unique across all rows.
type APIKey struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	UserID     uuid.UUID   `db:"user_id" json:"user_id"`
	Name       string      `db:"name" json:"name"`
	Env        Environment `db:"env" json:"type"`
	Key        string      `db:"key" json:"key"`
	Usage      int         `db:"usage" json:"usage"`
	UsageLimit *int        `db:"usage_limit" json:"limit,omitempty"` // NULL = unlimited
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// HasLimit reports whether a usage ceiling is configured.
func (k *APIKey) HasLimit() bool {
	return k.UsageLimit != nil
}

// Exhausted reports whether the quota has been used up. Keys without a
// limit are never exhausted.
func (k *APIKey) Exhausted() bool {
	return k.UsageLimit != nil && k.Usage >= *k.UsageLimit
}

// Remaining returns how many authorized calls are left, or -1 for
// unlimited keys.
func (k *APIKey) Remaining() int {
	if k.UsageLimit == nil {
		return -1
	}
	if left := *k.UsageLimit - k.Usage; left > 0 {
		return left
	}
	return 0
}
