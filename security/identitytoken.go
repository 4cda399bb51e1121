package security

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"uamvh.cloud/escolar/escolar/v1/common"
)

const (
	Issuer   = "uamvh-escolar"
	Audience = "escolar-gateway"
)

// Identity is the user a gateway token speaks for.
type Identity struct {
	ID       int64  `json:"nameid"`
	FullName string `json:"unique_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Device   string `json:"sid,omitempty"`
}

type IdentityClaims struct {
	Identity
	jwt.RegisteredClaims
}

func IdentityOf(user *common.LoginResponseDTO) Identity {
	return Identity{ID: user.ID, FullName: user.FullName, Email: user.Email, Role: user.Role}
}

// DecodeSecret accepts the base64 signing secret kept in configuration.
func DecodeSecret(base64Secret string) ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("signing secret is not base64: %w", err)
	}
	if len(secret) == 0 {
		return nil, errors.New("signing secret is empty")
	}
	return secret, nil
}

func CreateIdentityToken(identity Identity, base64Secret string, expiresIn time.Duration) (string, error) {
	secret, err := DecodeSecret(base64Secret)
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := IdentityClaims{
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  []string{Audience},
			Subject:   fmt.Sprint(identity.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseIdentityToken verifies signature, issuer and expiry of a gateway
// token.
func ParseIdentityToken(tokenStr string, secret []byte) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithAudience(Audience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenExpiry reads the exp claim of an API token without verifying it.
// The API signs its tokens with a key the client never sees.
func TokenExpiry(tokenStr string) (time.Time, bool, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return time.Time{}, false, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false, nil
	}
	return claims.ExpiresAt.Time, true, nil
}
