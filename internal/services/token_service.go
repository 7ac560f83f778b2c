package services

import (
	"strconv"
	"time"

	"convo-chat/internal/token"
	convo_errors "convo-chat/pkg/errors"
)

const DefaultTokenTTL = time.Hour

type TokenService struct {
	appID  string
	secret string
	ttl    time.Duration
	issuer token.Issuer
}

func NewTokenService(appID, secret string, ttl time.Duration, issuer token.Issuer) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if issuer == nil {
		issuer = token.Zego04{}
	}
	return &TokenService{appID: appID, secret: secret, ttl: ttl, issuer: issuer}
}

// Generate mints a call token for userID with an empty payload.
func (s *TokenService) Generate(userID string) (string, error) {
	appID, err := strconv.ParseUint(s.appID, 10, 32)
	if err != nil || appID == 0 || s.secret == "" || userID == "" {
		return "", convo_errors.ErrMissingCredentials
	}
	return s.issuer.Issue(uint32(appID), userID, s.secret, s.ttl, "")
}
