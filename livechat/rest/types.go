package rest

// Authentication types

// ExchangeCodeRequest trades the code returned by the redirect flow for a token.
type ExchangeCodeRequest struct {
	AppID string `json:"app_id"`
	Code  string `json:"code"`
}

// SignOutRequest revokes a refresh token.
type SignOutRequest struct {
	AppID        string `json:"app_id"`
	RefreshToken string `json:"refresh_token"`
}

// User is the account descriptor returned by the provider.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenResponse contains the refresh token and the account it belongs to.
type TokenResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UserResponse wraps the current account; User is nil when signed out.
type UserResponse struct {
	User *User `json:"user"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
