package calendar

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StateSigner signs the OAuth state parameter so the callback can reject
// codes we never asked for. The provider name rides along as a claim and
// routes the callback to the right connector.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
}

func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret), ttl: 10 * time.Minute}
}

func (s *StateSigner) Sign(provider string) (string, error) {
	claims := jwt.MapClaims{
		"provider": provider,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(s.ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify checks the signature and expiry and returns the provider claim.
func (s *StateSigner) Verify(state string) (string, error) {
	t, err := jwt.Parse(state, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !t.Valid {
		return "", errors.New("invalid state parameter")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	provider, ok := claims["provider"].(string)
	if !ok || provider == "" {
		return "", errors.New("missing provider claim")
	}
	return provider, nil
}
