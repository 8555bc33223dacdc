// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents an end user of the mini-program.
//
// The primary key is the OpenID asserted by the WeChat cloud gateway in a
// trusted request header. This service never verifies it cryptographically —
// the gateway sits in front of us and is the authentication boundary.
//
// WHY OpenID string (not an internal numeric ID)?
// Every inbound request already carries the openid, and every table is keyed
// by it. Introducing a second surrogate key would force a lookup on every
// request for no benefit.
type User struct {
	OpenID    string    `json:"openid" db:"openid"`
	UnionID   string    `json:"unionid,omitempty" db:"unionid"`   // Cross-app WeChat ID (may be empty)
	Nickname  string    `json:"nickname,omitempty" db:"nickname"` // Display name (may be empty)
	AvatarURL string    `json:"avatar_url,omitempty" db:"avatar_url"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LoginResult is returned by the login-or-register flow.
type LoginResult struct {
	User      *User `json:"user"`
	IsNewUser bool  `json:"isNewUser"`
}

// Profile is the aggregated payload the profile endpoint serves so the
// mini-program renders its account page with one request.
type Profile struct {
	User         *User         `json:"user"`
	GameAccounts []GameAccount `json:"game_accounts"`
	Settings     *Settings     `json:"settings"`
}
