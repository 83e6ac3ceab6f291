package domain

import "time"

// TokenPair is the access/refresh credential returned by login and registration.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty reports whether no access token is held.
func (p TokenPair) Empty() bool {
	return p.AccessToken == ""
}

// Registration is a new account as submitted to the backend.
type Registration struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Identity is what can be read from an access token without verifying it.
type Identity struct {
	Subject   string
	Email     string
	UserID    string
	ExpiresAt time.Time
}

// Expired reports whether the token expiry is known and before now.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// AudioClip is a finished recording ready for transcription.
type AudioClip struct {
	Data     []byte
	MIMEType string
}
