package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"gitsum/internal/models"
	"gitsum/internal/storage"
)

// Reason classifies a negative authorization outcome.
type Reason string

const (
	// ReasonInvalid means the credential does not match any key.
	ReasonInvalid Reason = "invalid"
	// ReasonRateLimited means the key exists but its quota is spent.
	ReasonRateLimited Reason = "rate_limited"
)

// Decision is the outcome of checking a bearer credential.
type Decision struct {
	Authorized bool
	Reason     Reason
	KeyID      uuid.UUID
	OwnerID    uuid.UUID
	Name       string
	Env        models.Environment
	Usage      int
	Remaining  int // -1 for unlimited keys
}

// KeyStore is the slice of the store the gate needs.
type KeyStore interface {
	GetByKey(ctx context.Context, credential string) (*models.APIKey, error)
	ConsumeUsage(ctx context.Context, keyID uuid.UUID) (int, error)
}

// Gate decides whether a bearer credential may proceed and meters it.
// Negative outcomes (unknown credential, spent quota) are ordinary
// Decision values; the error return means the store itself failed.
type Gate struct {
	store KeyStore
}

// NewGate creates a validation gate over a key store.
func NewGate(store KeyStore) *Gate {
	return &Gate{store: store}
}

// Check validates the credential and, when authorized, charges one call
// against its quota before the caller does any downstream work. Once the
// charge commits it stays committed regardless of what happens after
// (fail-closed accounting).
func (g *Gate) Check(ctx context.Context, credential string) (Decision, error) {
	key, err := g.store.GetByKey(ctx, credential)
	if err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			return Decision{Reason: ReasonInvalid}, nil
		}
		return Decision{}, fmt.Errorf("key lookup failed: %w", err)
	}

	usage, err := g.store.ConsumeUsage(ctx, key.ID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrLimitExceeded):
			return g.denied(key, ReasonRateLimited), nil
		case errors.Is(err, storage.ErrAPIKeyNotFound):
			// Deleted between lookup and metering.
			return Decision{Reason: ReasonInvalid}, nil
		}
		return Decision{}, fmt.Errorf("usage metering failed: %w", err)
	}

	remaining := -1
	if key.UsageLimit != nil {
		remaining = *key.UsageLimit - usage
	}

	return Decision{
		Authorized: true,
		KeyID:      key.ID,
		OwnerID:    key.UserID,
		Name:       key.Name,
		Env:        key.Env,
		Usage:      usage,
		Remaining:  remaining,
	}, nil
}

// Peek validates the credential without charging quota. Used by the
// dashboard's informational "validate this key" action; only the
// summarizer call site meters.
func (g *Gate) Peek(ctx context.Context, credential string) (Decision, error) {
	key, err := g.store.GetByKey(ctx, credential)
	if err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			return Decision{Reason: ReasonInvalid}, nil
		}
		return Decision{}, fmt.Errorf("key lookup failed: %w", err)
	}

	if key.Exhausted() {
		return g.denied(key, ReasonRateLimited), nil
	}

	return Decision{
		Authorized: true,
		KeyID:      key.ID,
		OwnerID:    key.UserID,
		Name:       key.Name,
		Env:        key.Env,
		Usage:      key.Usage,
		Remaining:  key.Remaining(),
	}, nil
}

func (g *Gate) denied(key *models.APIKey, reason Reason) Decision {
	return Decision{
		Reason:    reason,
		KeyID:     key.ID,
		OwnerID:   key.UserID,
		Name:      key.Name,
		Env:       key.Env,
		Usage:     key.Usage,
		Remaining: 0,
	}
}
