package model

import "time"

type MemberRole string

const (
	MemberRoleLeader MemberRole = "LEADER"
	MemberRoleMember MemberRole = "MEMBER"
)

type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IconURL     *string   `json:"icon_url,omitempty"`
	InviteCode  string    `json:"invite_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	MemberCount int `json:"member_count,omitempty"`
}

// OrganizationMember is the join between users and organizations.
// Exactly one row per (user_id, organization_id); a user may belong to
// several organizations at once.
type OrganizationMember struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	OrganizationID string     `json:"organization_id"`
	Role           MemberRole `json:"role"`
	JoinedAt       time.Time  `json:"joined_at"`

	UserName        *string `json:"user_name,omitempty"` // For display
	UserDisplayName *string `json:"user_display_name,omitempty"`
}
