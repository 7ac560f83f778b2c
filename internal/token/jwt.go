package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errMalformed = errors.New("token: malformed")

type jwtClaims struct {
	AppID   uint32 `json:"app_id"`
	Nonce   int32  `json:"nonce"`
	Payload string `json:"payload,omitempty"`
	jwt.RegisteredClaims
}

// JWT signs the same claims as Zego04 into an HS256 JWT for gateways that
// verify standard JWTs.
type JWT struct {
	Now func() time.Time
}

func (j JWT) Issue(appID uint32, userID, secret string, ttl time.Duration, payload string) (string, error) {
	if secret == "" {
		return "", ErrInvalidSecret
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	nonce, err := randomInt32()
	if err != nil {
		return "", err
	}
	issued := now()
	claims := jwtClaims{
		AppID:   appID,
		Nonce:   nonce,
		Payload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    strconv.FormatUint(uint64(appID), 10),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}

// ParseJWT validates a token produced by JWT.Issue and returns its claims.
func ParseJWT(tokenString, secret string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errMalformed
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, err
	}
	c, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return Claims{}, errMalformed
	}
	out := Claims{AppID: c.AppID, UserID: c.Subject, Nonce: c.Nonce, Payload: c.Payload}
	if c.IssuedAt != nil {
		out.Ctime = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		out.Expire = c.ExpiresAt.Unix()
	}
	return out, nil
}
