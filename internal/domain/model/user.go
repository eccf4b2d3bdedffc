package model

import "time"

type SystemRole string

const (
	RoleSystemAdmin SystemRole = "SYSTEM_ADMIN"
	RoleUser        SystemRole = "USER"
)

type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	DisplayName    *string    `json:"display_name,omitempty"`
	Grade          *int       `json:"grade,omitempty"`
	IconURL        *string    `json:"icon_url,omitempty"`
	SystemRole     SystemRole `json:"system_role"`
	HashedPassword string     `json:"-"` // Not exposed
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserProvider binds a local user to one external identity. (user_id, provider)
// and (provider, provider_id) are both unique at the database level.
type UserProvider struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Provider   string    `json:"provider"`
	ProviderID string    `json:"provider_id"`
	CreatedAt  time.Time `json:"created_at"`
}
