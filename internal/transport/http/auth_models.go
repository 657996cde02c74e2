package http

import "time"

// OtpSendRequest asks for a login code for a phone within an institution.
type OtpSendRequest struct {
	InstitutionSlug string `json:"institution_slug" example:"greenfield-academy"`
	Scope           string `json:"scope" example:"TEACHER"`
	Phone           string `json:"phone" example:"01712345678"`
}

// OtpSendResponse is returned by the send endpoint on success.
type OtpSendResponse struct {
	ChallengeID     string `json:"challenge_id,omitempty" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Sent            bool   `json:"sent" example:"true"`
	CooldownSeconds int    `json:"cooldown_seconds,omitempty" example:"45"`
	DevOtp          string `json:"dev_otp,omitempty" example:"123456"`
	Message         string `json:"message,omitempty"`
}

// OtpVerifyRequest submits a code against an open challenge.
type OtpVerifyRequest struct {
	InstitutionSlug string `json:"institution_slug" example:"greenfield-academy"`
	Scope           string `json:"scope" example:"TEACHER"`
	Phone           string `json:"phone" example:"01712345678"`
	ChallengeID     string `json:"challenge_id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Code            string `json:"code" example:"123456"`
}

// PasswordLoginRequest carries back-office email login fields.
type PasswordLoginRequest struct {
	InstitutionSlug string `json:"institution_slug" example:"greenfield-academy"`
	Email           string `json:"email" example:"admin@greenfield.example"`
	Password        string `json:"password" example:"StrongPass!23"`
}

// GoogleLoginRequest carries the Google ID token for staff login.
type GoogleLoginRequest struct {
	InstitutionSlug string `json:"institution_slug" example:"greenfield-academy"`
	IDToken         string `json:"id_token" example:"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// SessionUser is the sanitized account representation in auth responses.
type SessionUser struct {
	ID            string  `json:"id"`
	InstitutionID string  `json:"institution_id"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	FullName      *string `json:"full_name,omitempty"`
	Role          string  `json:"role"`
}

// SessionResponse is returned after a successful login.
type SessionResponse struct {
	Verified    bool        `json:"verified"`
	ChallengeID string      `json:"challenge_id,omitempty"`
	Token       string      `json:"token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        SessionUser `json:"user"`
}
