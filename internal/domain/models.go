package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleMentor Role = "mentor"
	RoleMentee Role = "mentee"
	RoleBoth   Role = "both"
)

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleMentor:
		return RoleMentor, true
	case RoleMentee:
		return RoleMentee, true
	case RoleBoth:
		return RoleBoth, true
	}
	return "", false
}

type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	Title     string
	Bio       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserWithPassword struct {
	User
	PasswordHash string
}

type ExternalAccount struct {
	UserID     string
	Provider   string
	ProviderID string
	Email      string
	CreatedAt  time.Time
}

// ProfileSummary is the decoration attached to ledger and discovery output.
type ProfileSummary struct {
	ID    string `json:"user_id"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Title string `json:"title,omitempty"`
	Bio   string `json:"bio,omitempty"`
}

func (u User) Summary() ProfileSummary {
	return ProfileSummary{ID: u.ID, Name: u.Name, Role: u.Role, Title: u.Title, Bio: u.Bio}
}

type ProfileEntry struct {
	Name  string `json:"name"`
	Level string `json:"level,omitempty"`
}

type Profile struct {
	ProfileSummary
	Skills       []ProfileEntry `json:"skills"`
	Interests    []ProfileEntry `json:"interests"`
	Availability []string       `json:"availability"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type ProfileUpdate struct {
	Name         string
	Role         Role
	Title        string
	Bio          string
	Skills       []ProfileEntry
	Interests    []ProfileEntry
	Availability []string
}
