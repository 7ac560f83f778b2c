package httpdto

// TokenResponse is returned by GET /generate-token/:userId
type TokenResponse struct {
	Token string `json:"token"`
}
