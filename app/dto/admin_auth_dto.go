package dto

// RefreshAdminTokenRequest exchanges a refresh token for a new pair
type RefreshAdminTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AdminTokenResponse carries a freshly issued token pair
type AdminTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
