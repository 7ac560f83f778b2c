// Package token mints the short-lived credentials clients present to the
// ZEGOCLOUD video/voice service.
package token

import (
	"errors"
	"fmt"
	"time"
)

const (
	FormatZego04 = "zego04"
	FormatJWT    = "jwt"
)

var ErrInvalidSecret = errors.New("token: server secret must be 32 bytes")

// Claims is the payload signed into every token regardless of format.
type Claims struct {
	AppID   uint32 `json:"app_id"`
	UserID  string `json:"user_id"`
	Nonce   int32  `json:"nonce"`
	Ctime   int64  `json:"ctime"`
	Expire  int64  `json:"expire"`
	Payload string `json:"payload"`
}

// Issuer produces a signed token for a subject.
type Issuer interface {
	Issue(appID uint32, userID, secret string, ttl time.Duration, payload string) (string, error)
}

func NewIssuer(format string) (Issuer, error) {
	switch format {
	case "", FormatZego04:
		return Zego04{}, nil
	case FormatJWT:
		return JWT{}, nil
	default:
		return nil, fmt.Errorf("token: unknown format %q", format)
	}
}
