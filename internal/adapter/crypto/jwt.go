package crypto

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/quantport.net/internal/config"
	"gitlab.com/quantport.net/internal/core/ports/primary"
)

var _ primary.TokenService = (*TokenServiceImpl)(nil)

var ErrInvalidToken = fmt.Errorf("invalid token")

type TokenServiceImpl struct {
	HMACSecretKey string
	TokenTTL      time.Duration
}

func NewTokenService(jwtConfig *config.JwtConfig) primary.TokenService {
	return &TokenServiceImpl{
		HMACSecretKey: jwtConfig.Secret,
		TokenTTL:      jwtConfig.TokenTTL,
	}
}

// IssueToken signs an HS256 token for the given subject.
func (t *TokenServiceImpl) IssueToken(ctx context.Context, subject string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(t.TokenTTL).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(t.HMACSecretKey))
}

// VerifyToken checks the signature and expiry of a token issued by IssueToken.
func (t *TokenServiceImpl) VerifyToken(ctx context.Context, token string) (bool, error) {
	parsedToken, err := jwt.Parse(token, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tk.Header["alg"])
		}
		return []byte(t.HMACSecretKey), nil
	})
	if err != nil {
		return false, ErrInvalidToken
	}
	return parsedToken.Valid, nil
}
