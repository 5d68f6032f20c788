// Copyright (c) 2026 Howkings. All rights reserved.

// Package auth implements the client-side authentication and session
// lifecycle: credential persistence, expiry detection, silent refresh,
// login/registration/logout operations, and the replay of user actions
// interrupted by a forced re-login.
//
// # Architecture
//
// The package mirrors the backend's wire contract but owns no UI. It talks
// to the rest of the client exclusively through the typed event bus and the
// operations API; nothing outside this package touches stored tokens.
package auth

// User represents the identity record the backend returns on login.
type User struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Roles           []string `json:"roles,omitempty"`
	ProfileImageURL string   `json:"profile_image_url,omitempty"`
}

// TokenPair is the credential pair issued by login, register, and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// sessionData is the payload of a successful login/register envelope.
type sessionData struct {
	User   *User     `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// AccountType selects the registration shape.
type AccountType string

const (
	AccountIndividual   AccountType = "individual"
	AccountOrganization AccountType = "organization"
)

// RegisterInput holds the data required to enroll a new member.
//
// # Rules
//   - Individual accounts require FirstName and LastName.
//   - Organization accounts require OrganizationName instead.
//   - Phone must already be normalized to international format.
type RegisterInput struct {
	Type             AccountType `json:"-"`
	FirstName        string      `json:"firstName,omitempty"`
	LastName         string      `json:"lastName,omitempty"`
	OrganizationName string      `json:"organizationName,omitempty"`
	Email            string      `json:"email"`
	Phone            string      `json:"phone"`
	Password         string      `json:"password"`
}
