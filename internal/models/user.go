package models

import "time"

// User is the persisted identity record, keyed by the OIDC subject.
// Records are soft-deleted: deactivation flips IsActive and keeps the record.
type User struct {
	ID        string    `json:"id" bson:"_id"`
	Email     string    `json:"email" bson:"email"`
	Name      string    `json:"name" bson:"name"`
	Picture   string    `json:"picture,omitempty" bson:"picture,omitempty"`
	Provider  string    `json:"provider" bson:"provider"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
	LastLogin time.Time `json:"last_login" bson:"lastLogin"`
	IsActive  bool      `json:"is_active" bson:"isActive"`
}
