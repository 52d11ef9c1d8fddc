package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an application account provisioned from a verified OAuth
// sign-in. Email is the stable identity; name and avatar follow whatever
// the identity provider last reported.
type User struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Name       *string   `db:"name" json:"name,omitempty"`
	AvatarURL  *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	Provider   string    `db:"provider" json:"provider"`
	ProviderID string    `db:"provider_id" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
